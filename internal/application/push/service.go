package push

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/garage-notify/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Options carries per-notification platform hints.
type Options struct {
	ChannelID string
	Sound     string
	Urgent    bool
}

// Gateway delivers one push message to one device.
type Gateway interface {
	Enabled() bool
	Send(ctx context.Context, msg domain.PushMessage) error
}

type registry interface {
	ListFor(ctx context.Context, userID int64) ([]domain.DeviceBinding, error)
}

// Service fans a notification out to every device bound to a user.
type Service interface {
	// SendToUser returns the number of devices the gateway accepted. Failures are
	// logged and never returned.
	SendToUser(ctx context.Context, userID int64, title, body string, data map[string]string, opts Options) int
}

type service struct {
	gateway     Gateway
	devices     registry
	fanoutLimit int
	sendTimeout time.Duration
}

func NewService(gateway Gateway, devices registry, fanoutLimit int, sendTimeout time.Duration) Service {
	if fanoutLimit <= 0 {
		fanoutLimit = 1
	}
	return &service{gateway: gateway, devices: devices, fanoutLimit: fanoutLimit, sendTimeout: sendTimeout}
}

func (s *service) SendToUser(ctx context.Context, userID int64, title, body string, data map[string]string, opts Options) int {
	if s.gateway == nil || !s.gateway.Enabled() {
		return 0
	}
	bindings, err := s.devices.ListFor(ctx, userID)
	if err != nil {
		slog.Warn("push: list devices failed", "user_id", userID, "err", err)
		return 0
	}
	if len(bindings) == 0 {
		return 0
	}

	payload := withHints(data, opts)
	var sent atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.fanoutLimit)
	for _, b := range bindings {
		g.Go(func() error {
			sendCtx, cancel := s.deviceContext(ctx)
			defer cancel()
			err := s.gateway.Send(sendCtx, domain.PushMessage{
				Token:     b.Token,
				Platform:  b.Platform,
				Title:     title,
				Body:      body,
				Data:      payload,
				ChannelID: opts.ChannelID,
				Sound:     opts.Sound,
				Urgent:    opts.Urgent,
			})
			if err != nil {
				slog.Warn("push: send failed", "user_id", userID, "binding_id", b.ID, "platform", b.Platform, "err", err)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(sent.Load())
}

func (s *service) deviceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.sendTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.sendTimeout)
}

// withHints copies data and adds the option keys mobile clients read.
func withHints(data map[string]string, opts Options) map[string]string {
	out := make(map[string]string, len(data)+3)
	for k, v := range data {
		out[k] = v
	}
	if opts.ChannelID != "" {
		out["channelId"] = opts.ChannelID
	}
	if opts.Sound != "" {
		out["sound"] = opts.Sound
	}
	if opts.Urgent {
		out["urgent"] = strconv.FormatBool(true)
	}
	return out
}
