package discord

type InteractionType int

const (
	InteractionPing               InteractionType = 1
	InteractionApplicationCommand InteractionType = 2
	InteractionModalSubmit        InteractionType = 5
)

type ResponseType int

const (
	ResponsePong           ResponseType = 1
	ResponseChannelMessage ResponseType = 4
	ResponseModal          ResponseType = 9
)

const (
	ComponentActionRow = 1
	ComponentButton    = 2
	ComponentTextInput = 4

	ButtonStyleLink = 5

	TextInputShort     = 1
	TextInputParagraph = 2

	FlagEphemeral = 1 << 6
)

// Interaction is the subset of Discord's interaction payload the bot reads.
type Interaction struct {
	ID    string          `json:"id"`
	Type  InteractionType `json:"type"`
	Data  InteractionData `json:"data"`
	Token string          `json:"token"`

	// Member is set in guilds, User in DMs.
	Member *Member `json:"member,omitempty"`
	User   *User   `json:"user,omitempty"`
}

type InteractionData struct {
	Name       string      `json:"name,omitempty"`
	CustomID   string      `json:"custom_id,omitempty"`
	Components []Component `json:"components,omitempty"`
}

type Member struct {
	User *User `json:"user"`
}

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
}

// String matches how Discord clients print a user: legacy accounts keep
// their #discriminator, migrated ones are just the username.
func (u User) String() string {
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	return u.Username
}

// Caller returns whoever invoked the interaction.
func (i *Interaction) Caller() (User, bool) {
	if i.Member != nil && i.Member.User != nil {
		return *i.Member.User, true
	}
	if i.User != nil {
		return *i.User, true
	}
	return User{}, false
}

// Component covers action rows, link buttons and text inputs.
type Component struct {
	Type        int         `json:"type"`
	Components  []Component `json:"components,omitempty"`
	CustomID    string      `json:"custom_id,omitempty"`
	Label       string      `json:"label,omitempty"`
	Style       int         `json:"style,omitempty"`
	URL         string      `json:"url,omitempty"`
	Value       string      `json:"value,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	MaxLength   int         `json:"max_length,omitempty"`
	Required    *bool       `json:"required,omitempty"`
}

// Value finds the submitted value of a text input anywhere in components.
func Value(components []Component, customID string) (string, bool) {
	for _, c := range components {
		if c.Type == ComponentTextInput && c.CustomID == customID {
			return c.Value, true
		}
		if v, ok := Value(c.Components, customID); ok {
			return v, true
		}
	}
	return "", false
}

type InteractionResponse struct {
	Type ResponseType  `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

type ResponseData struct {
	Content    string      `json:"content,omitempty"`
	Flags      int         `json:"flags,omitempty"`
	Components []Component `json:"components,omitempty"`
	CustomID   string      `json:"custom_id,omitempty"`
	Title      string      `json:"title,omitempty"`
}
