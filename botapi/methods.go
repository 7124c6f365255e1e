package botapi

import (
	"context"
)

type SendMessageParams struct {
	ChatID                   ChatID                `json:"chat_id"                               validate:"required"`
	MessageThreadID          int                   `json:"message_thread_id,omitempty"`
	Text                     string                `json:"text"                                  validate:"required,max=4096"`
	ParseMode                ParseMode             `json:"parse_mode,omitempty"                  validate:"omitempty,oneof=Markdown MarkdownV2 HTML"`
	Entities                 []MessageEntity       `json:"entities,omitempty"`
	DisableWebPagePreview    bool                  `json:"disable_web_page_preview,omitempty"`
	DisableNotification      bool                  `json:"disable_notification,omitempty"`
	ProtectContent           bool                  `json:"protect_content,omitempty"`
	ReplyToMessageID         int                   `json:"reply_to_message_id,omitempty"`
	AllowSendingWithoutReply bool                  `json:"allow_sending_without_reply,omitempty"`
	ReplyMarkup              *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type SendContactParams struct {
	ChatID                   ChatID                `json:"chat_id"      validate:"required"`
	MessageThreadID          int                   `json:"message_thread_id,omitempty"`
	PhoneNumber              string                `json:"phone_number" validate:"required"`
	FirstName                string                `json:"first_name"   validate:"required"`
	LastName                 string                `json:"last_name,omitempty"`
	VCard                    string                `json:"vcard,omitempty" validate:"omitempty,max=2048"`
	DisableNotification      bool                  `json:"disable_notification,omitempty"`
	ProtectContent           bool                  `json:"protect_content,omitempty"`
	ReplyToMessageID         int                   `json:"reply_to_message_id,omitempty"`
	AllowSendingWithoutReply bool                  `json:"allow_sending_without_reply,omitempty"`
	ReplyMarkup              *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type SetMyCommandsParams struct {
	Commands     []BotCommand     `json:"commands"                validate:"max=100,dive"`
	Scope        *BotCommandScope `json:"scope,omitempty"`
	LanguageCode string           `json:"language_code,omitempty" validate:"omitempty,len=2"`
}

// BanChatMemberParams bans a user. UntilDate is a Unix time; zero bans forever.
type BanChatMemberParams struct {
	ChatID         ChatID `json:"chat_id"    validate:"required"`
	UserID         int64  `json:"user_id"    validate:"required"`
	UntilDate      int64  `json:"until_date,omitempty"`
	RevokeMessages bool   `json:"revoke_messages,omitempty"`
}

// RestrictChatMemberParams restricts a user. UntilDate is a Unix time;
// zero restricts forever.
type RestrictChatMemberParams struct {
	ChatID                        ChatID          `json:"chat_id"     validate:"required"`
	UserID                        int64           `json:"user_id"     validate:"required"`
	Permissions                   ChatPermissions `json:"permissions"`
	UseIndependentChatPermissions bool            `json:"use_independent_chat_permissions,omitempty"`
	UntilDate                     int64           `json:"until_date,omitempty"`
}

// GetUpdatesParams configures a long poll. Timeout is in seconds and
// must stay below the client's HTTP timeout.
type GetUpdatesParams struct {
	Offset         int64        `json:"offset,omitempty"`
	Limit          int          `json:"limit,omitempty"           validate:"omitempty,min=1,max=100"`
	Timeout        int          `json:"timeout,omitempty"         validate:"min=0"`
	AllowedUpdates []UpdateType `json:"allowed_updates,omitempty"`
}

type chatParams struct {
	ChatID ChatID `json:"chat_id" validate:"required"`
}

type messageParams struct {
	ChatID    ChatID `json:"chat_id"    validate:"required"`
	MessageID int    `json:"message_id" validate:"required"`
}

type senderChatParams struct {
	ChatID       ChatID `json:"chat_id"        validate:"required"`
	SenderChatID int64  `json:"sender_chat_id" validate:"required"`
}

type memberParams struct {
	ChatID ChatID `json:"chat_id" validate:"required"`
	UserID int64  `json:"user_id" validate:"required"`
}

type fileParams struct {
	FileID string `json:"file_id" validate:"required"`
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	u, err := call[*User](ctx, c, "getMe", nil)
	if err != nil {
		return nil, err
	}
	if u != nil && u.ID != 0 {
		c.botID.Store(u.ID)
	}

	return u, nil
}

func (c *Client) SetMyCommands(ctx context.Context, params SetMyCommandsParams) error {
	if params.Commands == nil {
		params.Commands = []BotCommand{}
	}

	_, err := call[bool](ctx, c, "setMyCommands", params)
	return err
}

func (c *Client) SendContact(ctx context.Context, params SendContactParams) (*Message, error) {
	return call[*Message](ctx, c, "sendContact", params)
}

func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	return call[*Message](ctx, c, "sendMessage", params)
}

func (c *Client) LeaveChat(ctx context.Context, chatID ChatID) error {
	_, err := call[bool](ctx, c, "leaveChat", chatParams{ChatID: chatID})
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, chatID ChatID, messageID int) error {
	_, err := call[bool](ctx, c, "deleteMessage", messageParams{ChatID: chatID, MessageID: messageID})
	return err
}

func (c *Client) BanChatSenderChat(ctx context.Context, chatID ChatID, senderChatID int64) error {
	_, err := call[bool](ctx, c, "banChatSenderChat", senderChatParams{ChatID: chatID, SenderChatID: senderChatID})
	return err
}

func (c *Client) UnbanChatSenderChat(ctx context.Context, chatID ChatID, senderChatID int64) error {
	_, err := call[bool](ctx, c, "unbanChatSenderChat", senderChatParams{ChatID: chatID, SenderChatID: senderChatID})
	return err
}

func (c *Client) BanChatMember(ctx context.Context, params BanChatMemberParams) error {
	_, err := call[bool](ctx, c, "banChatMember", params)
	return err
}

func (c *Client) RestrictChatMember(ctx context.Context, params RestrictChatMemberParams) error {
	_, err := call[bool](ctx, c, "restrictChatMember", params)
	return err
}

func (c *Client) GetChatAdministrators(ctx context.Context, chatID ChatID) ([]ChatMember, error) {
	return call[[]ChatMember](ctx, c, "getChatAdministrators", chatParams{ChatID: chatID})
}

func (c *Client) GetChat(ctx context.Context, chatID ChatID) (*Chat, error) {
	return call[*Chat](ctx, c, "getChat", chatParams{ChatID: chatID})
}

func (c *Client) GetChatMember(ctx context.Context, chatID ChatID, userID int64) (*ChatMember, error) {
	return call[*ChatMember](ctx, c, "getChatMember", memberParams{ChatID: chatID, UserID: userID})
}

// GetUpdates long-polls for incoming updates.
func (c *Client) GetUpdates(ctx context.Context, params GetUpdatesParams) ([]Update, error) {
	return call[[]Update](ctx, c, "getUpdates", params)
}

// GetFile resolves a file ID to a path usable with DownloadFile.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	return call[*File](ctx, c, "getFile", fileParams{FileID: fileID})
}
