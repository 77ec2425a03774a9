package checkout

import (
	"context"
	"fmt"
	"time"

	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/xid"
)

// MaxChannels bounds how many concurrent carts one operator can park.
const MaxChannels = 5

// channel is one independently tracked in-progress transaction. The engine
// exclusively owns the channel list; a channel exclusively owns its cart.
type channel struct {
	id          string
	displayName string
	cart        cart
	customer    *domain.Customer
	createdAt   time.Time

	// busy marks an in-flight scan resolution or commit targeting this
	// channel. Cart mutations and further payments are rejected while set.
	busy bool

	// lastScanInput/lastScanAt implement the duplicate-scan cooldown window.
	lastScanInput string
	lastScanAt    time.Time
}

func (e *Engine) findChannel(channelID string) *channel {
	for _, ch := range e.channels {
		if ch.id == channelID {
			return ch
		}
	}
	return nil
}

// CreateChannel appends a new empty channel and makes it active.
func (e *Engine) CreateChannel() (domain.ChannelView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.channels) >= MaxChannels {
		return domain.ChannelView{}, fmt.Errorf("%w: at most %d channels", ErrChannelLimit, MaxChannels)
	}

	e.channelSeq++
	ch := &channel{
		id:          xid.New("chan"),
		displayName: fmt.Sprintf("Channel %d", e.channelSeq),
		createdAt:   e.now(),
	}
	e.channels = append(e.channels, ch)
	e.activeID = ch.id
	return e.viewLocked(ch), nil
}

// SwitchActive validates the id and moves the active marker. It never
// touches cart contents.
func (e *Engine) SwitchActive(channelID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.findChannel(channelID) == nil {
		return ErrChannelNotFound
	}
	e.activeID = channelID
	return nil
}

// CloseChannel removes a channel. Closing the only remaining channel fails;
// closing a channel with a non-empty cart requires confirmed=true from the
// caller. If the closed channel was active, activation falls back to the
// first remaining channel in list order. In-flight lookups or commits
// against the closed channel are not cancelled; their results are discarded
// when they land.
func (e *Engine) CloseChannel(ctx context.Context, channelID string, confirmed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, ch := range e.channels {
		if ch.id == channelID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrChannelNotFound
	}
	if len(e.channels) == 1 {
		return ErrLastChannel
	}
	ch := e.channels[idx]
	if !ch.cart.empty() && !confirmed {
		return ErrCloseNeedsConfirm
	}

	discarded := len(ch.cart.lines)
	e.channels = append(e.channels[:idx], e.channels[idx+1:]...)
	if e.activeID == channelID {
		e.activeID = e.channels[0].id
	}

	if discarded > 0 {
		e.audit(ctx, "channel_close", "channel", channelID, fmt.Sprintf("discarded_lines=%d", discarded))
	}
	return nil
}

// Channels lists every channel with fresh totals.
func (e *Engine) Channels() []domain.ChannelView {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]domain.ChannelView, 0, len(e.channels))
	for _, ch := range e.channels {
		views = append(views, e.viewLocked(ch))
	}
	return views
}

// ActiveChannelID returns the id the engine currently marks active.
func (e *Engine) ActiveChannelID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeID
}

func (e *Engine) viewLocked(ch *channel) domain.ChannelView {
	var customer *domain.Customer
	if ch.customer != nil {
		c := *ch.customer
		customer = &c
	}
	return domain.ChannelView{
		ID:          ch.id,
		DisplayName: ch.displayName,
		Active:      ch.id == e.activeID,
		Lines:       ch.cart.snapshot(),
		Customer:    customer,
		Totals:      ch.cart.totals(),
		CreatedAt:   ch.createdAt,
	}
}
