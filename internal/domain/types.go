package domain

import "time"

// CatalogItem is a sellable product normalised from the upstream catalog API.
// Prices are minor currency units (centavos for MXN).
type CatalogItem struct {
	ID               string       `json:"id" firestore:"id"`
	Name             string       `json:"name" firestore:"name"`
	Description      string       `json:"description,omitempty" firestore:"description,omitempty"`
	Price            int64        `json:"price" firestore:"price"`
	Currency         string       `json:"currency" firestore:"currency"`
	ImageURL         string       `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	AdditionalImages []string     `json:"additionalImages,omitempty" firestore:"additionalImages,omitempty"`
	Stock            int64        `json:"stock" firestore:"stock"`
	Category         string       `json:"category,omitempty" firestore:"category,omitempty"`
	Presale          *PresaleInfo `json:"presale,omitempty" firestore:"presale,omitempty"`
}

// PresaleInfo carries the presale attributes of a catalog item.
type PresaleInfo struct {
	ReleaseAt         *time.Time `json:"releaseAt,omitempty" firestore:"releaseAt,omitempty"`
	EstimatedShipping *time.Time `json:"estimatedShipping,omitempty" firestore:"estimatedShipping,omitempty"`
	Exclusive         bool       `json:"exclusive,omitempty" firestore:"exclusive,omitempty"`
}

// IsPresale reports whether the item participates in a presale.
func (c CatalogItem) IsPresale() bool {
	return c.Presale != nil
}

// CartLine is a single product entry in a cart. Quantity is always positive;
// lines that would drop to zero or below are removed instead.
type CartLine struct {
	ProductID string     `json:"productId" firestore:"productId"`
	Name      string     `json:"name" firestore:"name"`
	UnitPrice int64      `json:"unitPrice" firestore:"unitPrice"`
	Currency  string     `json:"currency" firestore:"currency"`
	ImageURL  string     `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	Quantity  int        `json:"quantity" firestore:"quantity"`
	Presale   bool       `json:"presale,omitempty" firestore:"presale,omitempty"`
	ReleaseAt *time.Time `json:"releaseAt,omitempty" firestore:"releaseAt,omitempty"`
	AddedAt   time.Time  `json:"addedAt" firestore:"addedAt"`
}

// Subtotal returns the line total in minor units.
func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is the session-scoped shopping cart. Lines preserve insertion order.
type Cart struct {
	SessionID string     `json:"sessionId" firestore:"sessionId"`
	Lines     []CartLine `json:"lines" firestore:"lines"`
	CreatedAt time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

// IsEmpty reports whether the cart holds no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Total returns the sum of all line subtotals in minor units.
func (c Cart) Total() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.Subtotal()
	}
	return total
}

// ItemCount returns the total quantity across all lines.
func (c Cart) ItemCount() int {
	var count int
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// Line returns the cart line for the given product, if present.
func (c Cart) Line(productID string) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// Customer identifies the buyer supplied at checkout.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Order is the durable record produced by a successful checkout.
type Order struct {
	ID          string     `json:"id" firestore:"id"`
	SessionID   string     `json:"sessionId" firestore:"sessionId"`
	Customer    Customer   `json:"customer" firestore:"customer"`
	Lines       []CartLine `json:"lines" firestore:"lines"`
	Total       int64      `json:"total" firestore:"total"`
	Currency    string     `json:"currency" firestore:"currency"`
	PaymentRef  string     `json:"paymentRef" firestore:"paymentRef"`
	PlacedAt    time.Time  `json:"placedAt" firestore:"placedAt"`
}

// Remaining is the time left until a presale unlocks, split into calendar-style units.
type Remaining struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
	Elapsed bool  `json:"elapsed"`
}
