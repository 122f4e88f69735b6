package events

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicExpenseRecorded = "expense.recorded"
	TopicBalanceSettled  = "balance.settled"
)

// Publisher delivers committed ledger events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

type ExpenseRecorded struct {
	ExpenseID    uint64          `json:"expenseId"`
	GroupID      uint64          `json:"groupId"`
	PayerID      uint64          `json:"payerId"`
	CurrencyID   uint64          `json:"currencyId"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Share        decimal.Decimal `json:"share"`
	Participants []uint64        `json:"participants"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

type BalanceSettled struct {
	ExpenseID  uint64          `json:"expenseId"`
	GroupID    uint64          `json:"groupId"`
	PayerID    uint64          `json:"payerId"`
	PayeeID    uint64          `json:"payeeId"`
	CurrencyID uint64          `json:"currencyId"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurredAt"`
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }

type Message struct {
	Topic   string
	Payload interface{}
}

// MemoryPublisher keeps every published message in order.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Topic: topic, Payload: payload})
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

func (p *MemoryPublisher) ByTopic(topic string) []Message {
	var out []Message
	for _, m := range p.Messages() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
