package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category groups the multi-provider products.
type Category struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	IconImageURL  string `json:"icon_image_url,omitempty"`
	ProductsCount int    `json:"products_count"`
}

type CatalogProduct struct {
	ID            ID        `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	VariantsCount int       `json:"variants_count"`
	Category      *Category `json:"category,omitempty"`
}

const (
	VariantAmount  = "amount"
	VariantPackage = "package"
)

type QtyConstraints struct {
	Min  int64 `json:"min"`
	Max  int64 `json:"max"`
	Step int64 `json:"step"`
}

// DeliveryField is one piece of data the provider needs to deliver an
// order, such as a player id or an account email.
type DeliveryField struct {
	Key      string `json:"key"`
	Label    string `json:"label,omitempty"`
	Required bool   `json:"required"`
}

// Variant is an orderable form of a product. Package variants are bought
// by the piece; amount variants price Quantity units at Price per
// BaseAmount units.
type Variant struct {
	ID             ID              `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ProductType    string          `json:"product_type"`
	BaseAmount     int64           `json:"base_amount,omitempty"`
	QtyConstraints *QtyConstraints `json:"qty_constraints,omitempty"`
	RequiredData   []DeliveryField `json:"required_data"`
	Product        *CatalogProduct `json:"product,omitempty"`
}

// Kind is the variant's product type, package when unset.
func (v *Variant) Kind() string {
	if v.ProductType == "" {
		return VariantPackage
	}
	return v.ProductType
}

// Total is the estimated price of qty units, rounded to cents.
func (v *Variant) Total(qty int64) decimal.Decimal {
	q := decimal.NewFromInt(qty)
	if v.Kind() == VariantAmount && v.BaseAmount > 0 {
		return q.Div(decimal.NewFromInt(v.BaseAmount)).Mul(v.Price).Round(2)
	}
	return v.Price.Mul(q).Round(2)
}

// CheckQuantity applies the variant's quantity constraints. Only amount
// variants carry min, max and step.
func (v *Variant) CheckQuantity(qty int64) error {
	if qty < 1 {
		return Invalid("quantity", "quantity must be 1 or more")
	}
	c := v.QtyConstraints
	if v.Kind() != VariantAmount || c == nil {
		return nil
	}
	switch {
	case c.Min > 0 && qty < c.Min:
		return Invalid("quantity", fmt.Sprintf("quantity must be at least %d", c.Min))
	case c.Max > 0 && qty > c.Max:
		return Invalid("quantity", fmt.Sprintf("quantity must not exceed %d", c.Max))
	case c.Step > 1 && c.Min > 0 && (qty-c.Min)%c.Step != 0:
		return Invalid("quantity", fmt.Sprintf("quantity must go in steps of %d starting at %d", c.Step, c.Min))
	}
	return nil
}

// CheckDeliveryData reports every required field that is missing, keyed by
// field key.
func (v *Variant) CheckDeliveryData(data map[string]string) map[string]string {
	missing := map[string]string{}
	for _, f := range v.RequiredData {
		if f.Required && data[f.Key] == "" {
			label := f.Label
			if label == "" {
				label = f.Key
			}
			missing[f.Key] = label + " is required"
		}
	}
	return missing
}

// Order statuses as the seller sees them.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderCompleted  = "completed"
	OrderFailed     = "failed"
)

type Provider struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name"`
}

type OrderStatusLog struct {
	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Order is a multi-provider order. UserStatus is what the seller sees;
// SystemStatus tracks the provider pipeline (queued, assigned, polling,
// refunded and so on).
type Order struct {
	ID              ID               `json:"id"`
	OrderNumber     string           `json:"order_number"`
	ProductVariant  *Variant         `json:"product_variant,omitempty"`
	Quantity        int64            `json:"quantity"`
	TotalPrice      decimal.Decimal  `json:"total_price"`
	DeliveryMethod  string           `json:"delivery_method,omitempty"`
	DeliveryData    map[string]any   `json:"delivery_data,omitempty"`
	UserStatus      string           `json:"user_status"`
	SystemStatus    string           `json:"system_status,omitempty"`
	CurrentProvider *Provider        `json:"current_provider,omitempty"`
	Attempts        int              `json:"attempts"`
	CreatedAt       string           `json:"created_at"`
	CompletedAt     string           `json:"completed_at,omitempty"`
	FailedAt        string           `json:"failed_at,omitempty"`
	StatusLogs      []OrderStatusLog `json:"status_logs,omitempty"`
}

type OrderFilter struct {
	Status   string
	FromDate string
	ToDate   string
	Page     int
	PerPage  int
}

type OrderPage struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

type CreateOrderRequest struct {
	ProductVariantID ID                `json:"product_variant_id"`
	Quantity         int64             `json:"quantity"`
	DeliveryData     map[string]string `json:"delivery_data"`
}
