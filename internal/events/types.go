// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType names a launchpad event.
type EventType string

const (
	TokenCreated   EventType = "token.created"
	TradeExecuted  EventType = "trade.executed"
	PoolGraduated  EventType = "pool.graduated"
	PoolPaused     EventType = "pool.paused"
	VestingCreated EventType = "vesting.created"
	VestingClaimed EventType = "vesting.claimed"
	FeesWithdrawn  EventType = "fees.withdrawn"
	ConfigUpdated  EventType = "config.updated"
	// GraduationFailed is emitted when a graduation attempt was rolled back.
	GraduationFailed EventType = "graduation.failed"
)

// All lists every event type in a stable order.
var All = []EventType{
	TokenCreated, TradeExecuted, PoolGraduated, PoolPaused,
	VestingCreated, VestingClaimed, FeesWithdrawn, ConfigUpdated, GraduationFailed,
}

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event of type t at now.
func NewBase(t EventType, now time.Time) BaseEvent {
	return BaseEvent{EventType: t, EventTime: now}
}

type TokenCreatedEvent struct {
	BaseEvent
	Pool               solana.PublicKey
	Mint               solana.PublicKey
	Creator            solana.PublicKey
	Name               string
	Symbol             string
	TotalSupply        uint64
	PlatformAllocation uint64
	CreationFee        uint64
	BasePrice          uint64
	Slope              uint64
}

type TradeExecutedEvent struct {
	BaseEvent
	Pool              solana.PublicKey
	Trader            solana.PublicKey
	Side              string
	AmountIn          uint64
	AmountOut         uint64
	PlatformFee       uint64
	CreatorFee        uint64
	PriceAfter        uint64
	CirculatingSupply uint64
	BaseBalance       uint64
}

type PoolGraduatedEvent struct {
	BaseEvent
	Pool              solana.PublicKey
	Exchange          string
	ExchangePool      solana.PublicKey
	BaseToLiquidity   uint64
	TokensToLiquidity uint64
	StakingTokens     uint64
	GraduationFee     uint64
	TotalLP           uint64
	CreatorLP         uint64
	CommunityLP       uint64
}

type GraduationFailedEvent struct {
	BaseEvent
	Pool     solana.PublicKey
	Exchange string
	Step     string
	Err      error
}

type PoolPausedEvent struct {
	BaseEvent
	Pool   solana.PublicKey
	Paused bool
	By     solana.PublicKey
}

type VestingCreatedEvent struct {
	BaseEvent
	Schedule    string
	Pool        solana.PublicKey
	Beneficiary solana.PublicKey
	Asset       solana.PublicKey
	Amount      uint64
	Position    string
	CliffMs     uint64
	DurationMs  uint64
}

type VestingClaimedEvent struct {
	BaseEvent
	Schedule    string
	Beneficiary solana.PublicKey
	Amount      uint64
}

type FeesWithdrawnEvent struct {
	BaseEvent
	Account solana.PublicKey
	To      solana.PublicKey
	Amount  uint64
}

type ConfigUpdatedEvent struct {
	BaseEvent
	Group     string
	UpdatedBy solana.PublicKey
	Version   uint64
}
