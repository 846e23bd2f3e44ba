// Package cart keeps the per-session shopping cart in the shared cache and
// mutates it atomically.
package cart

import "sort"

// Line is one product in a cart or order. UnitPrice is snapshotted from the
// catalog when the product is first added.
type Line struct {
	ProductID  int64   `json:"productId"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	MerchantID int64   `json:"merchantId"`
}

func (l Line) Subtotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// Cart is keyed by session token. Items never holds a line with quantity <= 0.
// Version increases on every successful write.
type Cart struct {
	Token   string         `json:"token"`
	UserID  int64          `json:"userId"`
	Items   map[int64]Line `json:"items"`
	Version int64          `json:"version"`
}

func New(token string, userID int64) *Cart {
	return &Cart{Token: token, UserID: userID, Items: map[int64]Line{}}
}

// Add merges line into the cart. An existing line keeps its price snapshot and
// gains the quantity.
func (c *Cart) Add(line Line) {
	if c.Items == nil {
		c.Items = map[int64]Line{}
	}
	if cur, ok := c.Items[line.ProductID]; ok {
		cur.Quantity += line.Quantity
		c.Items[line.ProductID] = cur
		return
	}
	c.Items[line.ProductID] = line
}

// Remove drops the line when quantity is nil, otherwise subtracts and drops
// the line once nothing is left.
func (c *Cart) Remove(productID int64, quantity *int) {
	cur, ok := c.Items[productID]
	if !ok {
		return
	}
	if quantity != nil {
		cur.Quantity -= *quantity
	}
	if quantity == nil || cur.Quantity <= 0 {
		delete(c.Items, productID)
		return
	}
	c.Items[productID] = cur
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Lines returns the lines ordered by product id.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.Items))
	for _, l := range c.Items {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (c *Cart) TotalItemCount() int {
	return TotalItemCount(c.Lines())
}

func (c *Cart) TotalPrice() float64 {
	return TotalPrice(c.Lines())
}

func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make(map[int64]Line, len(c.Items))
	for k, v := range c.Items {
		out.Items[k] = v
	}
	return &out
}

// TotalItemCount sums quantities.
func TotalItemCount(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice sums quantity * unit price.
func TotalPrice(lines []Line) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// View is the JSON shape returned to clients.
type View struct {
	UserID         int64   `json:"userId"`
	Items          []Line  `json:"items"`
	TotalItemCount int     `json:"totalItemCount"`
	TotalPrice     float64 `json:"totalPrice"`
	Version        int64   `json:"version"`
}

func (c *Cart) View() View {
	lines := c.Lines()
	return View{
		UserID:         c.UserID,
		Items:          lines,
		TotalItemCount: TotalItemCount(lines),
		TotalPrice:     TotalPrice(lines),
		Version:        c.Version,
	}
}
