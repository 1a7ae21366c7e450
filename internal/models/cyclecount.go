package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CycleCountStatus represents the lifecycle state of a counting session
type CycleCountStatus string

const (
	CycleCountStatusOpen      CycleCountStatus = "OPEN"
	CycleCountStatusCompleted CycleCountStatus = "COMPLETED"
	CycleCountStatusCancelled CycleCountStatus = "CANCELLED"
)

// CycleCountSession is a blind physical count against frozen ledger
// snapshots. SystemQuantity is captured per line at creation and withheld
// from counters while the session is OPEN; variances are computed and
// revealed only at completion. Completing a session never mutates the
// ledger - corrections go through the adjustment approval gate.
type CycleCountSession struct {
	ID       uuid.UUID        `json:"id" gorm:"type:uuid;primary_key"`
	Number   string           `json:"number" gorm:"type:varchar(50);not null;uniqueIndex"`
	Location string           `json:"location" gorm:"type:varchar(20);not null;index"`
	Notes    *string          `json:"notes,omitempty" gorm:"type:text"`
	Status   CycleCountStatus `json:"status" gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Version  int              `json:"version" gorm:"not null;default:1"` // Optimistic locking

	// Set when the session is converted into a stock adjustment, so a
	// session cannot spawn two competing correction proposals.
	AdjustmentID *uuid.UUID `json:"adjustmentId,omitempty" gorm:"type:uuid"`

	CreatedBy   string     `json:"createdBy" gorm:"type:varchar(255);not null"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Lines []CycleCountLine `json:"lines,omitempty" gorm:"foreignKey:SessionID"`
}

// CycleCountLine holds one product's frozen system quantity and the count
// entered in the aisle. CountedQuantity stays nil until a counter submits
// it; re-counting overwrites. Variance is set at completion.
type CycleCountLine struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	SessionID uuid.UUID `json:"sessionId" gorm:"type:uuid;not null;index"`
	LineNo    int       `json:"lineNo" gorm:"not null"`
	ProductID string    `json:"productId" gorm:"type:varchar(100);not null"`

	SystemQuantity  int  `json:"systemQuantity" gorm:"not null"`
	CountedQuantity *int `json:"countedQuantity,omitempty"`
	Variance        *int `json:"variance,omitempty"`

	CountedBy *string    `json:"countedBy,omitempty" gorm:"type:varchar(255)"`
	CountedAt *time.Time `json:"countedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsTerminal returns true if the session can no longer change state
func (s *CycleCountSession) IsTerminal() bool {
	return s.Status == CycleCountStatusCompleted ||
		s.Status == CycleCountStatusCancelled
}

// CounterView is the capability-scoped projection handed to counters while
// a session is OPEN. It omits SystemQuantity and Variance entirely rather
// than blanking them, so the blind-count guarantee holds by construction.
type CycleCountCounterView struct {
	ID        uuid.UUID               `json:"id"`
	Number    string                  `json:"number"`
	Location  string                  `json:"location"`
	Notes     *string                 `json:"notes,omitempty"`
	Status    CycleCountStatus        `json:"status"`
	CreatedBy string                  `json:"createdBy"`
	CreatedAt time.Time               `json:"createdAt"`
	Lines     []CycleCountLineCounter `json:"lines"`
}

// CycleCountLineCounter is the counter projection of one line
type CycleCountLineCounter struct {
	LineNo          int        `json:"lineNo"`
	ProductID       string     `json:"productId"`
	CountedQuantity *int       `json:"countedQuantity,omitempty"`
	CountedBy       *string    `json:"countedBy,omitempty"`
	CountedAt       *time.Time `json:"countedAt,omitempty"`
}

// CounterView builds the counter projection of the session
func (s *CycleCountSession) CounterView() *CycleCountCounterView {
	view := &CycleCountCounterView{
		ID:        s.ID,
		Number:    s.Number,
		Location:  s.Location,
		Notes:     s.Notes,
		Status:    s.Status,
		CreatedBy: s.CreatedBy,
		CreatedAt: s.CreatedAt,
		Lines:     make([]CycleCountLineCounter, 0, len(s.Lines)),
	}
	for _, line := range s.Lines {
		view.Lines = append(view.Lines, CycleCountLineCounter{
			LineNo:          line.LineNo,
			ProductID:       line.ProductID,
			CountedQuantity: line.CountedQuantity,
			CountedBy:       line.CountedBy,
			CountedAt:       line.CountedAt,
		})
	}
	return view
}

// VarianceLine is one row of the variance report revealed at completion
type VarianceLine struct {
	LineNo          int    `json:"lineNo"`
	ProductID       string `json:"productId"`
	SystemQuantity  int    `json:"systemQuantity"`
	CountedQuantity int    `json:"countedQuantity"`
	Variance        int    `json:"variance"`
}

// VarianceReport summarizes a completed session
type VarianceReport struct {
	SessionID     uuid.UUID      `json:"sessionId"`
	Number        string         `json:"number"`
	Location      string         `json:"location"`
	CompletedAt   time.Time      `json:"completedAt"`
	TotalVariance int            `json:"totalVariance"`
	Lines         []VarianceLine `json:"lines"`
}

func (CycleCountSession) TableName() string {
	return "cycle_count_sessions"
}

func (CycleCountLine) TableName() string {
	return "cycle_count_lines"
}

func (s *CycleCountSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (l *CycleCountLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
