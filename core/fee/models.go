package fee

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Structure statuses
const (
	StatusActive     = "ACTIVE"
	StatusSuperseded = "SUPERSEDED"
)

// Item frequencies
const (
	FrequencyOneTime = "ONE_TIME"
	FrequencyMonthly = "MONTHLY"
	FrequencyTerm    = "TERM"
	FrequencyAnnual  = "ANNUAL"
)

// Payment methods
const (
	MethodCash   = "CASH"
	MethodBank   = "BANK"
	MethodCard   = "CARD"
	MethodOnline = "ONLINE"
	MethodCheque = "CHEQUE"
)

// occurrences of each frequency in a school year
var occurrences = map[string]int64{
	FrequencyOneTime: 1,
	FrequencyMonthly: 12,
	FrequencyTerm:    3,
	FrequencyAnnual:  1,
}

type Item struct {
	Name      string `json:"name" validate:"required,notblank,max=100"`
	Amount    int64  `json:"amount" validate:"min=0"` // minor units
	Frequency string `json:"frequency" validate:"required,oneof=ONE_TIME MONTHLY TERM ANNUAL"`
}

// Annual is what the item costs over a school year.
func (it Item) Annual() int64 {
	return it.Amount * occurrences[it.Frequency]
}

// Items is stored as JSON text.
type Items []Item

func (items Items) Total() int64 {
	var total int64
	for _, it := range items {
		total += it.Annual()
	}
	return total
}

func (items *Items) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*items = Items{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("fee.Items: unsupported type %T", v)
	}
	list := Items{}
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*items = list
	return nil
}

func (items Items) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

type Structure struct {
	ID            string      `json:"id" db:"id"`
	SchoolID      string      `json:"school_id" db:"school_id"`
	ClassID       string      `json:"class_id" db:"class_id"`
	Name          string      `json:"name" db:"name"`
	Version       int         `json:"version" db:"version"`
	RootID        string      `json:"root_id" db:"root_id"` // first version
	PreviousID    null.String `json:"previous_id" db:"previous_id"`
	Status        string      `json:"status" db:"status"`
	Items         Items       `json:"items" db:"items"`
	Total         int64       `json:"total" db:"total"` // annualised, minor units
	EffectiveFrom core.Date   `json:"effective_from" db:"effective_from"`
	CreatedBy     string      `json:"created_by" db:"created_by"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
	core.SoftDelete

	// joined
	ClassName string `json:"class_name" db:"class_name"`
}

func (s Structure) IsActive() bool { return s.Status == StatusActive }

type Payment struct {
	ID             string    `json:"id" db:"id"`
	SchoolID       string    `json:"school_id" db:"school_id"`
	StudentID      string    `json:"student_id" db:"student_id"`
	FeeStructureID string    `json:"fee_structure_id" db:"fee_structure_id"`
	Amount         int64     `json:"amount" db:"amount"`
	PaidOn         core.Date `json:"paid_on" db:"paid_on"`
	Method         string    `json:"method" db:"method"`
	Reference      string    `json:"reference" db:"reference"`
	ReceiptNo      string    `json:"receipt_no" db:"receipt_no"`
	ReceivedBy     string    `json:"received_by" db:"received_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	// joined
	StudentName   string `json:"student_name" db:"student_name"`
	FeeStructName string `json:"fee_structure_name" db:"fee_structure_name"`
	FeeRootID     string `json:"-" db:"fee_root_id"`
}

type NewStructure struct {
	ClassID       string    `json:"class_id" validate:"required"`
	Name          string    `json:"name" validate:"required,notblank,max=100"`
	Items         []Item    `json:"items" validate:"required,min=1,dive"`
	EffectiveFrom core.Date `json:"effective_from"`
}

func (ns *NewStructure) Validate(validate *validator.Validate) error {
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.Name = core.CleanString(ns.Name)
	cleanItems(ns.Items)
	return validate.Struct(ns)
}

// ReviseStructure holds the line items of the next version of a fee structure.
type ReviseStructure struct {
	Items         []Item    `json:"items" validate:"required,min=1,dive"`
	EffectiveFrom core.Date `json:"effective_from"`
}

func (rs *ReviseStructure) Validate(validate *validator.Validate) error {
	cleanItems(rs.Items)
	return validate.Struct(rs)
}

func cleanItems(items []Item) {
	for i := range items {
		items[i].Name = core.CleanString(items[i].Name)
		items[i].Frequency = strings.ToUpper(core.CleanString(items[i].Frequency))
	}
}

type StructureFilter struct {
	SchoolID string
	ClassID  string `query:"class_id"`
	Status   string `query:"status"`
	Search   string `query:"search"`
	RootID   string
}

type NewPayment struct {
	StudentID      string    `json:"student_id" validate:"required"`
	FeeStructureID string    `json:"fee_structure_id" validate:"required"`
	Amount         int64     `json:"amount" validate:"gt=0"`
	PaidOn         core.Date `json:"paid_on"` // defaults to today
	Method         string    `json:"method" validate:"required,oneof=CASH BANK CARD ONLINE CHEQUE"`
	Reference      string    `json:"reference" validate:"max=100"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.StudentID = core.CleanString(np.StudentID)
	np.FeeStructureID = core.CleanString(np.FeeStructureID)
	np.Method = strings.ToUpper(core.CleanString(np.Method))
	np.Reference = core.CleanString(np.Reference)
	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.PaidOn.IsZero() {
		np.PaidOn = core.Today()
	}
	if np.PaidOn.After(core.Today()) {
		return core.NewValidationError(nil, core.FieldError{Field: "paid_on", Error: "payment date cannot be in the future"})
	}
	return nil
}

type PaymentFilter struct {
	SchoolID       string
	StudentID      string    `query:"student_id"`
	FeeStructureID string    `query:"fee_structure_id"`
	Method         string    `query:"method"`
	From           core.Date `query:"from"`
	To             core.Date `query:"to"`
}

// Balance is what a student owes for the active fee structures of their class.
type Balance struct {
	StudentID  string      `json:"student_id"`
	Due        int64       `json:"due"`
	Paid       int64       `json:"paid"`
	Balance    int64       `json:"balance"`
	Structures []Structure `json:"structures"`
}
