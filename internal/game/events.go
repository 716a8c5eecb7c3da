package game

import (
	"time"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/odds"
)

// EventType identifies a table notification.
type EventType string

const (
	EventPlayerJoined     EventType = "player_joined"
	EventPlayerLeft       EventType = "player_left"
	EventPlayerSatOut     EventType = "player_sat_out"
	EventPhaseChanged     EventType = "phase_changed"
	EventRoundStarted     EventType = "round_started"
	EventRoundAbandoned   EventType = "round_abandoned"
	EventRoundAborted     EventType = "round_aborted"
	EventRoundSettled     EventType = "round_settled"
	EventShoeReshuffled   EventType = "shoe_reshuffled"
	EventBettingOpened    EventType = "betting_opened"
	EventBetPlaced        EventType = "bet_placed"
	EventBetRefunded      EventType = "bet_refunded"
	EventBettingClosed    EventType = "betting_closed"
	EventCardDealt        EventType = "card_dealt"
	EventDealerUpCard     EventType = "dealer_up_card"
	EventInsuranceOffered EventType = "insurance_offered"
	EventInsuranceBought  EventType = "insurance_bought"
	EventInsuranceSettled EventType = "insurance_settled"
	EventTurnStarted      EventType = "turn_started"
	EventActionTaken      EventType = "action_taken"
	EventActionTimeout    EventType = "action_timeout"
	EventAutoStand        EventType = "auto_stand"
	EventHandSplit        EventType = "hand_split"
	EventHandBusted       EventType = "hand_busted"
	EventHandForfeited    EventType = "hand_forfeited"
	EventDealerRevealed   EventType = "dealer_revealed"
	EventDealerDrew       EventType = "dealer_drew"
	EventDealerBusted     EventType = "dealer_busted"
	EventHandSettled      EventType = "hand_settled"
	EventRebuyOffered     EventType = "rebuy_offered"
	EventRebuyCompleted   EventType = "rebuy_completed"
	EventRebuyExpired     EventType = "rebuy_expired"
	EventTableStopping    EventType = "table_stopping"
	EventTableStopped     EventType = "table_stopped"
	EventOddsUpdated      EventType = "odds_updated"
)

func (et EventType) String() string {
	return string(et)
}

// PlayerResult summarises one player's round.
type PlayerResult struct {
	Player   string `json:"player"`
	Wagered  int    `json:"wagered"`
	Returned int    `json:"returned"`
	Net      int    `json:"net"`
	Score    int    `json:"score"`
	Stack    int    `json:"stack"`
}

// Event is a notification emitted by a table. Only the fields relevant to
// the event type are set.
type Event struct {
	Type      EventType          `json:"type"`
	Table     string             `json:"table"`
	Round     int                `json:"round"`
	Phase     Phase              `json:"phase,omitempty"`
	Player    string             `json:"player,omitempty"`
	Hand      int                `json:"hand"`
	Cards     []deck.Card        `json:"cards,omitempty"`
	Value     int                `json:"value,omitempty"`
	Amount    int                `json:"amount,omitempty"`
	Stack     int                `json:"stack,omitempty"`
	Action    blackjack.Action   `json:"action,omitempty"`
	Actions   []blackjack.Action `json:"actions,omitempty"`
	Result    blackjack.Result   `json:"result,omitempty"`
	Reason    string             `json:"reason,omitempty"`
	Deadline  time.Time          `json:"deadline,omitzero"`
	Results   []PlayerResult     `json:"results,omitempty"`
	Odds      *odds.Estimate     `json:"odds,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Notifier receives table events. Notify is called with the table lock held:
// implementations must return promptly and must not call back into the table.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) {
	f(e)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
