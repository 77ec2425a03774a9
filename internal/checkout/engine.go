package checkout

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"lanepos/backend/internal/catalog"
	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/events"
	"lanepos/backend/internal/journal"
	"lanepos/backend/internal/salesapi"
	"lanepos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Engine is the multi-channel checkout core. All channel and cart state is
// owned here and mutated only under e.mu, giving the run-to-completion
// semantics the operations assume. Catalog lookups and sale commits run
// outside the lock; their results are applied against the channel id
// captured at issue time and discarded if that channel no longer exists.
type Engine struct {
	mu         sync.Mutex
	catalog    catalog.Gateway
	sales      salesapi.Client
	journal    journal.Store
	events     events.Publisher
	channels   []*channel
	activeID   string
	channelSeq int
	lastSale   *domain.Sale
	idemSeq    *xid.Sequence
	cooldown   time.Duration
	now        func() time.Time
}

// DefaultScanCooldown is how long identical raw input on one channel is
// ignored after a completed resolution, so a single scanner pulse cannot
// register twice.
const DefaultScanCooldown = 400 * time.Millisecond

func NewEngine(cat catalog.Gateway, sales salesapi.Client, jrnl journal.Store, pub events.Publisher, cooldown time.Duration) *Engine {
	if cooldown <= 0 {
		cooldown = DefaultScanCooldown
	}
	e := &Engine{
		catalog:  cat,
		sales:    sales,
		journal:  jrnl,
		events:   pub,
		idemSeq:  xid.NewSequence("commit"),
		cooldown: cooldown,
		now:      time.Now,
	}
	// An engine always has at least one open channel.
	if _, err := e.CreateChannel(); err != nil {
		log.Printf("[engine] bootstrap channel: %v", err)
	}
	return e
}

// SetQuantity updates a line's quantity on the given channel; qty <= 0
// removes the line.
func (e *Engine) SetQuantity(channelID string, productID string, qty int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.findChannel(channelID)
	if ch == nil {
		return ErrChannelNotFound
	}
	if ch.busy {
		return ErrChannelBusy
	}
	return ch.cart.setQuantity(productID, qty)
}

func (e *Engine) RemoveLine(channelID string, productID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.findChannel(channelID)
	if ch == nil {
		return ErrChannelNotFound
	}
	if ch.busy {
		return ErrChannelBusy
	}
	return ch.cart.removeLine(productID)
}

func (e *Engine) ApplyDiscount(channelID string, productID string, percent int, note string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.findChannel(channelID)
	if ch == nil {
		return ErrChannelNotFound
	}
	if ch.busy {
		return ErrChannelBusy
	}
	return ch.cart.applyDiscount(productID, percent, note)
}

func (e *Engine) SelectCustomer(channelID string, customer *domain.Customer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.findChannel(channelID)
	if ch == nil {
		return ErrChannelNotFound
	}
	ch.customer = customer
	return nil
}

func (e *Engine) ClearCart(channelID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.findChannel(channelID)
	if ch == nil {
		return ErrChannelNotFound
	}
	if ch.busy {
		return ErrChannelBusy
	}
	ch.cart.clear()
	return nil
}

// Totals recomputes the channel's totals from its lines.
func (e *Engine) Totals(channelID string) (domain.Totals, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.findChannel(channelID)
	if ch == nil {
		return domain.Totals{}, ErrChannelNotFound
	}
	return ch.cart.totals(), nil
}

// LastSale returns the most recently committed sale, if any, for receipt
// presentation.
func (e *Engine) LastSale() (domain.Sale, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastSale == nil {
		return domain.Sale{}, false
	}
	return *e.lastSale, true
}

// audit writes a journal entry best-effort; journaling must never fail an
// operator action. Attribution comes from the actor carried on the request
// context. Callers hold e.mu.
func (e *Engine) audit(ctx context.Context, action, entityType, entityID, detail string) {
	if e.journal == nil {
		return
	}
	actor, _ := ActorFromContext(ctx)
	entry := domain.AuditEntry{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     e.now().UTC(),
	}
	if err := e.journal.RecordAudit(context.Background(), entry); err != nil {
		log.Printf("[engine] WARN: audit %s %s: %v", action, entityID, err)
	}
}

func describePayments(payments []domain.Payment) string {
	out := ""
	for i, p := range payments {
		if i > 0 {
			out += "+"
		}
		out += fmt.Sprintf("%s:%d", p.Method, p.AmountCents)
	}
	return out
}
