package tgthrottle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/adamwoolhether/tgthrottle/botapi"
	"github.com/adamwoolhether/tgthrottle/botapi/download"
	"github.com/adamwoolhether/tgthrottle/gate"
)

// ErrNilAPI is returned by [New] when no underlying API client is given.
var ErrNilAPI = errors.New("api client must not be nil")

// API is the set of Bot API operations the [Client] fronts.
// *botapi.Client satisfies it.
type API interface {
	BotID() int64
	GetMe(ctx context.Context) (*botapi.User, error)
	SetMyCommands(ctx context.Context, params botapi.SetMyCommandsParams) error
	SendContact(ctx context.Context, params botapi.SendContactParams) (*botapi.Message, error)
	SendMessage(ctx context.Context, params botapi.SendMessageParams) (*botapi.Message, error)
	LeaveChat(ctx context.Context, chatID botapi.ChatID) error
	DeleteMessage(ctx context.Context, chatID botapi.ChatID, messageID int) error
	BanChatSenderChat(ctx context.Context, chatID botapi.ChatID, senderChatID int64) error
	UnbanChatSenderChat(ctx context.Context, chatID botapi.ChatID, senderChatID int64) error
	BanChatMember(ctx context.Context, params botapi.BanChatMemberParams) error
	RestrictChatMember(ctx context.Context, params botapi.RestrictChatMemberParams) error
	GetChatAdministrators(ctx context.Context, chatID botapi.ChatID) ([]botapi.ChatMember, error)
	GetChat(ctx context.Context, chatID botapi.ChatID) (*botapi.Chat, error)
	GetChatMember(ctx context.Context, chatID botapi.ChatID, userID int64) (*botapi.ChatMember, error)
	GetUpdates(ctx context.Context, params botapi.GetUpdatesParams) ([]botapi.Update, error)
	GetFile(ctx context.Context, fileID string) (*botapi.File, error)
	DownloadFile(ctx context.Context, filePath string, w io.Writer, opts ...download.Option) error
}

var _ API = (*botapi.Client)(nil)

// Client paces calls to an [API] through a single [gate.Gate]. Every
// method except GetUpdates waits its turn and holds the gate for the
// configured delay afterwards.
type Client struct {
	api  API
	gate *gate.Gate
}

// New wraps api so that consecutive calls start at least delay apart.
// Gate options name the gate and wire logging, tracing and metrics.
func New(api API, delay time.Duration, opts ...gate.Option) (*Client, error) {
	if api == nil {
		return nil, ErrNilAPI
	}

	g, err := gate.New(delay, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gate: %w", err)
	}

	return &Client{api: api, gate: g}, nil
}

// Execute runs work through c's gate, for calls the Client has no
// method for. The work shares the schedule of every other gated call.
func Execute[T any](ctx context.Context, c *Client, operation string, work func(ctx context.Context, api API) (T, error)) (T, error) {
	return gate.Do(gate.WithOperation(ctx, operation), c.gate, func(ctx context.Context) (T, error) {
		return work(ctx, c.api)
	})
}

// Close tears down the gate. Calls already running finish normally;
// every later call, GetUpdates included, returns gate.ErrClosed.
func (c *Client) Close() error {
	return c.gate.Close()
}

// Delay returns the minimum spacing between gated calls.
func (c *Client) Delay() time.Duration {
	return c.gate.Delay()
}

// BotID returns the bot's user ID without contacting the server.
func (c *Client) BotID() int64 {
	return c.api.BotID()
}

// GetUpdates long-polls for updates. It bypasses the gate: the poll's
// own timeout limits it, and holding the gate for its duration would
// starve every other call.
func (c *Client) GetUpdates(ctx context.Context, params botapi.GetUpdatesParams) ([]botapi.Update, error) {
	if c.gate.Closed() {
		return nil, gate.ErrClosed
	}

	return c.api.GetUpdates(ctx, params)
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*botapi.User, error) {
	return do(ctx, c, "getMe", func(ctx context.Context) (*botapi.User, error) {
		return c.api.GetMe(ctx)
	})
}

// SetMyCommands replaces the bot's command list for the given scope.
func (c *Client) SetMyCommands(ctx context.Context, params botapi.SetMyCommandsParams) error {
	return exec(ctx, c, "setMyCommands", func(ctx context.Context) error {
		return c.api.SetMyCommands(ctx, params)
	})
}

// SendContact sends a phone contact.
func (c *Client) SendContact(ctx context.Context, params botapi.SendContactParams) (*botapi.Message, error) {
	return do(ctx, c, "sendContact", func(ctx context.Context) (*botapi.Message, error) {
		return c.api.SendContact(ctx, params)
	})
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, params botapi.SendMessageParams) (*botapi.Message, error) {
	return do(ctx, c, "sendMessage", func(ctx context.Context) (*botapi.Message, error) {
		return c.api.SendMessage(ctx, params)
	})
}

// LeaveChat makes the bot leave a group, supergroup or channel.
func (c *Client) LeaveChat(ctx context.Context, chatID botapi.ChatID) error {
	return exec(ctx, c, "leaveChat", func(ctx context.Context) error {
		return c.api.LeaveChat(ctx, chatID)
	})
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, chatID botapi.ChatID, messageID int) error {
	return exec(ctx, c, "deleteMessage", func(ctx context.Context) error {
		return c.api.DeleteMessage(ctx, chatID, messageID)
	})
}

// BanChatSenderChat bans a channel chat from posting in chatID.
func (c *Client) BanChatSenderChat(ctx context.Context, chatID botapi.ChatID, senderChatID int64) error {
	return exec(ctx, c, "banChatSenderChat", func(ctx context.Context) error {
		return c.api.BanChatSenderChat(ctx, chatID, senderChatID)
	})
}

// UnbanChatSenderChat lifts a ban set by BanChatSenderChat.
func (c *Client) UnbanChatSenderChat(ctx context.Context, chatID botapi.ChatID, senderChatID int64) error {
	return exec(ctx, c, "unbanChatSenderChat", func(ctx context.Context) error {
		return c.api.UnbanChatSenderChat(ctx, chatID, senderChatID)
	})
}

// BanChatMember bans a user from a group, supergroup or channel.
func (c *Client) BanChatMember(ctx context.Context, params botapi.BanChatMemberParams) error {
	return exec(ctx, c, "banChatMember", func(ctx context.Context) error {
		return c.api.BanChatMember(ctx, params)
	})
}

// RestrictChatMember changes a supergroup member's permissions.
func (c *Client) RestrictChatMember(ctx context.Context, params botapi.RestrictChatMemberParams) error {
	return exec(ctx, c, "restrictChatMember", func(ctx context.Context) error {
		return c.api.RestrictChatMember(ctx, params)
	})
}

// GetChatAdministrators lists a chat's administrators.
func (c *Client) GetChatAdministrators(ctx context.Context, chatID botapi.ChatID) ([]botapi.ChatMember, error) {
	return do(ctx, c, "getChatAdministrators", func(ctx context.Context) ([]botapi.ChatMember, error) {
		return c.api.GetChatAdministrators(ctx, chatID)
	})
}

// GetChat returns up-to-date information about a chat.
func (c *Client) GetChat(ctx context.Context, chatID botapi.ChatID) (*botapi.Chat, error) {
	return do(ctx, c, "getChat", func(ctx context.Context) (*botapi.Chat, error) {
		return c.api.GetChat(ctx, chatID)
	})
}

// GetChatMember returns a single member of a chat.
func (c *Client) GetChatMember(ctx context.Context, chatID botapi.ChatID, userID int64) (*botapi.ChatMember, error) {
	return do(ctx, c, "getChatMember", func(ctx context.Context) (*botapi.ChatMember, error) {
		return c.api.GetChatMember(ctx, chatID, userID)
	})
}

// GetFile resolves a file ID to a path that DownloadFile accepts.
func (c *Client) GetFile(ctx context.Context, fileID string) (*botapi.File, error) {
	return do(ctx, c, "getFile", func(ctx context.Context) (*botapi.File, error) {
		return c.api.GetFile(ctx, fileID)
	})
}

// DownloadFile streams a file to w. It holds the gate for the whole
// transfer.
func (c *Client) DownloadFile(ctx context.Context, filePath string, w io.Writer, opts ...download.Option) error {
	return exec(ctx, c, "downloadFile", func(ctx context.Context) error {
		return c.api.DownloadFile(ctx, filePath, w, opts...)
	})
}

func do[T any](ctx context.Context, c *Client, operation string, work func(ctx context.Context) (T, error)) (T, error) {
	return gate.Do(gate.WithOperation(ctx, operation), c.gate, work)
}

func exec(ctx context.Context, c *Client, operation string, work func(ctx context.Context) error) error {
	return c.gate.Exec(gate.WithOperation(ctx, operation), work)
}
