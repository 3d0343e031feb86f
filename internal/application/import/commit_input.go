package importapp

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/domain/finance"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/locale"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractInput is the validated shape of an extracted contract
type ContractInput struct {
	ClientName  string   `json:"clientName" validate:"required_without=ProjectName,max=200"`
	ProjectName string   `json:"projectName" validate:"required_without=ClientName,max=200"`
	Description string   `json:"description" validate:"max=1000"`
	Category    string   `json:"category" validate:"max=100"`
	Notes       string   `json:"notes"`
	Status      string   `json:"status"`
	TotalValue  *float64 `json:"totalValue" validate:"required,gt=0"`
	SignedDate  string   `json:"signedDate" validate:"required,isodate"`
}

// ReceivableInput is the validated shape of an extracted receivable
type ReceivableInput struct {
	ClientName     string   `json:"clientName" validate:"max=200"`
	ProjectName    string   `json:"projectName" validate:"max=200"`
	Description    string   `json:"description" validate:"max=500"`
	Category       string   `json:"category" validate:"max=100"`
	InvoiceNumber  string   `json:"invoiceNumber" validate:"max=100"`
	Notes          string   `json:"notes"`
	Status         string   `json:"status"`
	Amount         *float64 `json:"amount" validate:"required,gt=0"`
	ReceivedAmount *float64 `json:"receivedAmount" validate:"omitempty,gt=0"`
	ExpectedDate   string   `json:"expectedDate" validate:"required,isodate"`
	ReceivedDate   string   `json:"receivedDate" validate:"omitempty,isodate"`
}

// ExpenseInput is the validated shape of an extracted expense
type ExpenseInput struct {
	Description   string   `json:"description" validate:"required_without=Vendor,max=500"`
	Vendor        string   `json:"vendor" validate:"required_without=Description,max=200"`
	ClientName    string   `json:"clientName" validate:"max=200"`
	ProjectName   string   `json:"projectName" validate:"max=200"`
	Category      string   `json:"category" validate:"max=100"`
	InvoiceNumber string   `json:"invoiceNumber" validate:"max=100"`
	Notes         string   `json:"notes"`
	Status        string   `json:"status"`
	Amount        *float64 `json:"amount" validate:"required,gt=0"`
	DueDate       string   `json:"dueDate" validate:"required,isodate"`
	PaidDate      string   `json:"paidDate" validate:"omitempty,isodate"`
}

// NewInputValidator returns a validator that knows the isodate rule and
// reports fields by their json names.
func NewInputValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, ok := locale.ToTime(fl.Field().String())
		return ok
	})
	return v
}

// describeValidation flattens validator errors into one readable line.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+validationMessage(fe))
	}
	return strings.Join(parts, "; ")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + lowerFirst(fe.Param()) + " is empty"
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "isodate":
		return fmt.Sprintf("%q is not a valid date", fe.Value())
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func contractInputFrom(d extraction.EntityData) ContractInput {
	return ContractInput{
		ClientName:  strings.TrimSpace(d.ClientName),
		ProjectName: strings.TrimSpace(d.ProjectName),
		Description: d.Description,
		Category:    d.Category,
		Notes:       d.Notes,
		Status:      d.Status,
		TotalValue:  d.TotalValue,
		SignedDate:  d.SignedDate,
	}
}

func receivableInputFrom(d extraction.EntityData) ReceivableInput {
	return ReceivableInput{
		ClientName:     strings.TrimSpace(d.ClientName),
		ProjectName:    strings.TrimSpace(d.ProjectName),
		Description:    d.Description,
		Category:       d.Category,
		InvoiceNumber:  d.InvoiceNumber,
		Notes:          d.Notes,
		Status:         d.Status,
		Amount:         d.Amount,
		ReceivedAmount: d.ReceivedAmount,
		ExpectedDate:   d.ExpectedDate,
		ReceivedDate:   d.ReceivedDate,
	}
}

func expenseInputFrom(d extraction.EntityData) ExpenseInput {
	return ExpenseInput{
		Description:   strings.TrimSpace(d.Description),
		Vendor:        strings.TrimSpace(d.Vendor),
		ClientName:    strings.TrimSpace(d.ClientName),
		ProjectName:   strings.TrimSpace(d.ProjectName),
		Category:      d.Category,
		InvoiceNumber: d.InvoiceNumber,
		Notes:         d.Notes,
		Status:        d.Status,
		Amount:        d.Amount,
		DueDate:       d.DueDate,
		PaidDate:      d.PaidDate,
	}
}

// toContract builds the domain contract. Inputs must already be validated.
func (in ContractInput) toContract(scope shared.TeamScope) (*finance.Contract, error) {
	signed, _ := locale.ToTime(in.SignedDate)
	c, err := finance.NewContract(scope.TenantID, in.ClientName, in.ProjectName, decimal.NewFromFloat(*in.TotalValue), signed)
	if err != nil {
		return nil, err
	}
	c.Description = strings.TrimSpace(in.Description)
	c.Category = strings.TrimSpace(in.Category)
	c.Notes = strings.TrimSpace(in.Notes)
	if err := c.SetStatus(finance.ParseContractStatus(in.Status)); err != nil {
		return nil, err
	}
	stampCreator(&c.TenantEntity, scope)
	return c, nil
}

func (in ReceivableInput) toReceivable(scope shared.TeamScope) (*finance.Receivable, error) {
	expected, _ := locale.ToTime(in.ExpectedDate)
	r, err := finance.NewReceivable(scope.TenantID, decimal.NewFromFloat(*in.Amount), expected)
	if err != nil {
		return nil, err
	}
	r.ClientName = in.ClientName
	r.Description = strings.TrimSpace(in.Description)
	if r.Description == "" {
		r.Description = in.ProjectName
	}
	r.Category = strings.TrimSpace(in.Category)
	r.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	r.Notes = strings.TrimSpace(in.Notes)

	status := finance.ParseReceivableStatus(in.Status)
	received, hasReceivedDate := locale.ToTime(in.ReceivedDate)
	switch {
	case status == finance.ReceivableStatusReceived || hasReceivedDate:
		if !hasReceivedDate {
			received = expected
		}
		var amount *decimal.Decimal
		if in.ReceivedAmount != nil {
			d := decimal.NewFromFloat(*in.ReceivedAmount)
			amount = &d
		}
		if err := r.MarkReceived(received, amount); err != nil {
			return nil, err
		}
	default:
		r.Status = status
	}
	stampCreator(&r.TenantEntity, scope)
	return r, nil
}

func (in ExpenseInput) toExpense(scope shared.TeamScope) (*finance.Expense, error) {
	due, _ := locale.ToTime(in.DueDate)
	e, err := finance.NewExpense(scope.TenantID, in.Description, in.Vendor, decimal.NewFromFloat(*in.Amount), due)
	if err != nil {
		return nil, err
	}
	e.Category = strings.TrimSpace(in.Category)
	e.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	e.Notes = strings.TrimSpace(in.Notes)

	status := finance.ParseExpenseStatus(in.Status)
	paid, hasPaidDate := locale.ToTime(in.PaidDate)
	switch {
	case status == finance.ExpenseStatusPaid || hasPaidDate:
		if !hasPaidDate {
			paid = due
		}
		if err := e.MarkPaid(paid); err != nil {
			return nil, err
		}
	default:
		e.Status = status
	}
	stampCreator(&e.TenantEntity, scope)
	return e, nil
}

func stampCreator(e *shared.TenantEntity, scope shared.TeamScope) {
	if scope.UserID == uuid.Nil {
		return
	}
	userID := scope.UserID
	e.CreatedBy = &userID
}

// linkReference is the free text a receivable or expense uses to name its
// contract.
// The order follows Contract.DisplayName.
func linkReference(client, project string) string {
	return strings.TrimSpace(strings.TrimSpace(client) + " " + strings.TrimSpace(project))
}

func sameDay(a, b time.Time) bool {
	return a.Format(extraction.DateLayout) == b.Format(extraction.DateLayout)
}
