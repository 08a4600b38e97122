// Package discord serves Discord's HTTP interactions endpoint and maps each
// slash command and modal onto the altar workflow.
package discord

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MikeSquared-Agency/viren/internal/workflow"
)

// Command is a slash command name the bot answers.
type Command string

const (
	CommandFirst  Command = "first"
	CommandSecond Command = "second"
	CommandThird  Command = "third"
	CommandPath   Command = "path"
	CommandStatus Command = "status"
	CommandReset  Command = "reset"
	CommandHelp   Command = "help"
	CommandAbout  Command = "about"
	CommandFairy  Command = "fairy"
	CommandAltar  Command = "altar"
	CommandReturn Command = "return"
)

const (
	maxBodyBytes  = 1 << 20
	modalIDPrefix = "altar:"
	stumbleText   = "⚠️ The Fairy stumbled. Try again."
)

type commandFunc func(ctx context.Context, h *Handler, caller User) (InteractionResponse, error)

type submitFunc func(c *workflow.Controller, ctx context.Context, u workflow.User, text string) (workflow.Reply, error)

type modal struct {
	title       string
	inputID     string
	label       string
	placeholder string
	style       int
	maxLength   int
	submit      submitFunc
}

var modals = map[Command]modal{
	CommandFirst: {
		title:       "First Sacrifice — The First Quest",
		inputID:     "story",
		label:       "Lay yourself bare",
		placeholder: "Who you are, where you are, what you want. Not pretty—true.",
		style:       TextInputParagraph,
		maxLength:   2000,
		submit:      (*workflow.Controller).SubmitFirst,
	},
	CommandSecond: {
		title:       "Second Sacrifice — The Human Project",
		inputID:     "project",
		label:       "Name the trial",
		placeholder: "Scope, constraints, stakes. Budget, time, allies, obstacles.",
		style:       TextInputParagraph,
		maxLength:   2000,
		submit:      (*workflow.Controller).SubmitSecond,
	},
	CommandThird: {
		title:       "Third Sacrifice — Surrender the Choice",
		inputID:     "consent",
		label:       "Type 'I surrender' to let Viren choose.",
		style:       TextInputShort,
		maxLength:   50,
		submit:      (*workflow.Controller).SubmitThird,
	},
}

var commands = map[Command]commandFunc{
	CommandFirst:  openModal(CommandFirst),
	CommandSecond: openModal(CommandSecond),
	CommandThird:  openModal(CommandThird),
	CommandPath: func(ctx context.Context, h *Handler, caller User) (InteractionResponse, error) {
		res, err := h.ctrl.ComputePath(ctx, caller.ID)
		return message(res.Reply), err
	},
	CommandStatus: func(ctx context.Context, h *Handler, caller User) (InteractionResponse, error) {
		reply, err := h.ctrl.StatusReply(ctx, caller.ID)
		return message(reply), err
	},
	CommandReset: func(ctx context.Context, h *Handler, caller User) (InteractionResponse, error) {
		reply, err := h.ctrl.Reset(ctx, caller.ID)
		return message(reply), err
	},
	CommandHelp: func(_ context.Context, h *Handler, _ User) (InteractionResponse, error) {
		return message(h.ctrl.Notice("Commands: " + strings.Join(commandIndex(), ", "))), nil
	},
	CommandAbout: func(_ context.Context, h *Handler, _ User) (InteractionResponse, error) {
		return message(h.ctrl.Notice("Viren — shard of Coven Zero. Occult-tech interface. Half command, half prophecy.")), nil
	},
	CommandFairy:  fairyPortal,
	CommandReturn: fairyPortal,
	CommandAltar: func(_ context.Context, h *Handler, _ User) (InteractionResponse, error) {
		return message(h.ctrl.Portal("Step to the Altar. Lay down your offerings.")), nil
	},
}

func fairyPortal(_ context.Context, h *Handler, _ User) (InteractionResponse, error) {
	return message(h.ctrl.Portal("The Fairy awaits you. Return to the entry page.")), nil
}

func commandIndex() []string {
	return []string{"/fairy", "/altar", "/first", "/second", "/third", "/path", "/status", "/reset", "/about", "/help", "/return"}
}

// Handler answers POSTs from Discord.
type Handler struct {
	ctrl *workflow.Controller
	key  ed25519.PublicKey
}

func NewHandler(ctrl *workflow.Controller, key ed25519.PublicKey) *Handler {
	return &Handler{ctrl: ctrl, key: key}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if !Verify(h.key, r.Header, body) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid request signature"})
		return
	}

	var in Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed interaction"})
		return
	}

	switch in.Type {
	case InteractionPing:
		writeJSON(w, http.StatusOK, InteractionResponse{Type: ResponsePong})
	case InteractionApplicationCommand:
		writeJSON(w, http.StatusOK, h.handleCommand(r.Context(), &in))
	case InteractionModalSubmit:
		writeJSON(w, http.StatusOK, h.handleModal(r.Context(), &in))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported interaction type"})
	}
}

func (h *Handler) handleCommand(ctx context.Context, in *Interaction) InteractionResponse {
	caller, ok := in.Caller()
	if !ok {
		return message(h.ctrl.Notice("The altar cannot see you."))
	}

	name := Command(in.Data.Name)
	fn, ok := commands[name]
	if !ok {
		return message(h.ctrl.Notice("Unknown rite. Try `/help`."))
	}

	resp, err := fn(ctx, h, caller)
	if err != nil {
		slog.Error("command failed", "command", name, "user_id", caller.ID, "error", err)
		return message(h.ctrl.Notice(stumbleText))
	}
	return resp
}

func (h *Handler) handleModal(ctx context.Context, in *Interaction) InteractionResponse {
	caller, ok := in.Caller()
	if !ok {
		return message(h.ctrl.Notice("The altar cannot see you."))
	}

	name := Command(strings.TrimPrefix(in.Data.CustomID, modalIDPrefix))
	m, ok := modals[name]
	if !ok || !strings.HasPrefix(in.Data.CustomID, modalIDPrefix) {
		return message(h.ctrl.Notice("Unknown rite. Try `/help`."))
	}

	text, _ := Value(in.Data.Components, m.inputID)
	u := workflow.User{ID: caller.ID, DisplayName: caller.String()}
	reply, err := m.submit(h.ctrl, ctx, u, text)
	if err != nil {
		slog.Error("modal submit failed", "modal", name, "user_id", caller.ID, "error", err)
		return message(h.ctrl.Notice(stumbleText))
	}
	return message(reply)
}

func openModal(name Command) commandFunc {
	return func(_ context.Context, _ *Handler, _ User) (InteractionResponse, error) {
		m := modals[name]
		required := true
		return InteractionResponse{
			Type: ResponseModal,
			Data: &ResponseData{
				CustomID: modalIDPrefix + string(name),
				Title:    m.title,
				Components: []Component{{
					Type: ComponentActionRow,
					Components: []Component{{
						Type:        ComponentTextInput,
						CustomID:    m.inputID,
						Label:       m.label,
						Style:       m.style,
						Placeholder: m.placeholder,
						MaxLength:   m.maxLength,
						Required:    &required,
					}},
				}},
			},
		}, nil
	}
}

func message(reply workflow.Reply) InteractionResponse {
	data := &ResponseData{Content: reply.Content, Flags: FlagEphemeral}
	if len(reply.Links) > 0 {
		buttons := make([]Component, len(reply.Links))
		for i, l := range reply.Links {
			buttons[i] = Component{Type: ComponentButton, Style: ButtonStyleLink, Label: l.Label, URL: l.URL}
		}
		data.Components = []Component{{Type: ComponentActionRow, Components: buttons}}
	}
	return InteractionResponse{Type: ResponseChannelMessage, Data: data}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
