package clover

// Item is a Clover inventory item as returned by /v3/merchants/{mId}/items.
// Money fields are integer cents.
type Item struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Code        string        `json:"code,omitempty"`
	SKU         string        `json:"sku,omitempty"`
	Price       int64         `json:"price"`
	Cost        int64         `json:"cost,omitempty"`
	PriceType   string        `json:"priceType,omitempty"`
	Hidden      bool          `json:"hidden,omitempty"`
	Description string        `json:"description,omitempty"`
	ItemStock   *ItemStock    `json:"itemStock,omitempty"`
	Categories  *CategoryList `json:"categories,omitempty"`
}

type ItemStock struct {
	Quantity   float64 `json:"quantity"`
	StockCount int64   `json:"stockCount,omitempty"`
}

// ItemPayload is the body sent when creating or updating an item.
type ItemPayload struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	SKU         string `json:"sku"`
	Price       int64  `json:"price"`
	Cost        int64  `json:"cost"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
}

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder,omitempty"`
}

type CategoryList struct {
	Elements []Category `json:"elements"`
}

type Merchant struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Owner   *MerchantOwner   `json:"owner,omitempty"`
	Address *MerchantAddress `json:"address,omitempty"`
}

type MerchantOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MerchantAddress struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// ItemsPage is one page of the item listing. HasMore is derived from the page
// size, the API has no cursor.
type ItemsPage struct {
	Items   []Item `json:"elements"`
	HasMore bool   `json:"-"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	MerchantID  string `json:"merchant_id"`
}

type itemStockPayload struct {
	Quantity int `json:"quantity"`
}
