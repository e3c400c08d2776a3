package chain

// OrderSide represents the side of an order
type OrderSide int

const (
	OrderSideBuy OrderSide = iota
	OrderSideSell
)

// SignatureType represents the signature scheme for orders
type SignatureType int

const (
	SignatureTypeEOA SignatureType = iota
	SignatureTypePolyProxy
	SignatureTypePolyGnosisSafe
)

// Order is the canonical, fully normalized order structure that gets
// hashed and signed. Amount fields are integer-scaled decimal strings.
type Order struct {
	Salt          string
	Maker         string
	Signer        string
	Taker         string
	TokenID       string
	MakerAmount   string
	TakerAmount   string
	Expiration    string
	Nonce         string
	FeeRateBps    string
	Side          OrderSide
	SignatureType SignatureType
}

// SignedOrder is an order together with its EIP-712 signature. Immutable
// once produced; submission never mutates it.
type SignedOrder struct {
	Order     *Order
	Signature string
}
