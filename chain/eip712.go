package chain

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EIP712 related errors
var (
	ErrInvalidOrderSalt   = errors.New("invalid order salt")
	ErrInvalidTokenID     = errors.New("invalid token ID")
	ErrInvalidMakerAmount = errors.New("invalid maker amount")
	ErrInvalidTakerAmount = errors.New("invalid taker amount")
)

// EIP712 domain constants for the exchange and the auth handshake
const (
	ExchangeDomainName    = "Polymarket CTF Exchange"
	ExchangeDomainVersion = "1"

	AuthDomainName    = "ClobAuthDomain"
	AuthDomainVersion = "1"

	// AuthAttestation is the fixed message carried in the L1 handshake.
	AuthAttestation = "This message attests that I control the given wallet"
)

// Pre-computed type hashes using keccak256
var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))

	// The auth domain has no verifying contract.
	eip712AuthDomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId)",
	))

	orderTypeHash = crypto.Keccak256Hash([]byte(
		"Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)",
	))

	clobAuthTypeHash = crypto.Keccak256Hash([]byte(
		"ClobAuth(address address,string timestamp,uint256 nonce,string message)",
	))
)

// ExchangeDomain represents the EIP712 domain separator of the exchange
type ExchangeDomain struct {
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewExchangeDomain creates the domain for a given exchange deployment
func NewExchangeDomain(chainID *big.Int, verifyingContract common.Address) *ExchangeDomain {
	return &ExchangeDomain{
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

// Hash computes the EIP712 domain separator hash
func (d *ExchangeDomain) Hash() common.Hash {
	bytes32Type, _ := abi.NewType("bytes32", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)
	addressType, _ := abi.NewType("address", "", nil)

	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: bytes32Type}, // nameHash
		{Type: bytes32Type}, // versionHash
		{Type: uint256Type}, // chainId
		{Type: addressType}, // verifyingContract
	}

	encoded, err := arguments.Pack(
		eip712DomainTypeHash,
		crypto.Keccak256Hash([]byte(ExchangeDomainName)),
		crypto.Keccak256Hash([]byte(ExchangeDomainVersion)),
		d.ChainID,
		d.VerifyingContract,
	)
	if err != nil {
		panic("failed to encode domain separator: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// authDomainHash computes the domain separator of the auth handshake,
// which binds only the chain ID.
func authDomainHash(chainID *big.Int) common.Hash {
	bytes32Type, _ := abi.NewType("bytes32", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)

	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: bytes32Type}, // nameHash
		{Type: bytes32Type}, // versionHash
		{Type: uint256Type}, // chainId
	}

	encoded, err := arguments.Pack(
		eip712AuthDomainTypeHash,
		crypto.Keccak256Hash([]byte(AuthDomainName)),
		crypto.Keccak256Hash([]byte(AuthDomainVersion)),
		chainID,
	)
	if err != nil {
		panic("failed to encode auth domain separator: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// orderTypedData is the numeric form of an Order used for hashing
type orderTypedData struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          uint8
	SignatureType uint8
}

// hash computes the struct hash for the order
func (o *orderTypedData) hash() common.Hash {
	bytes32Type, _ := abi.NewType("bytes32", "", nil)
	addressType, _ := abi.NewType("address", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)
	uint8Type, _ := abi.NewType("uint8", "", nil)

	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: uint256Type}, // salt
		{Type: addressType}, // maker
		{Type: addressType}, // signer
		{Type: addressType}, // taker
		{Type: uint256Type}, // tokenId
		{Type: uint256Type}, // makerAmount
		{Type: uint256Type}, // takerAmount
		{Type: uint256Type}, // expiration
		{Type: uint256Type}, // nonce
		{Type: uint256Type}, // feeRateBps
		{Type: uint8Type},   // side
		{Type: uint8Type},   // signatureType
	}

	encoded, err := arguments.Pack(
		orderTypeHash,
		o.Salt,
		o.Maker,
		o.Signer,
		o.Taker,
		o.TokenID,
		o.MakerAmount,
		o.TakerAmount,
		o.Expiration,
		o.Nonce,
		o.FeeRateBps,
		o.Side,
		o.SignatureType,
	)
	if err != nil {
		panic("failed to encode order struct: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// AuthMessage is the typed message signed during the L1 handshake.
type AuthMessage struct {
	Address   common.Address
	Timestamp string
	Nonce     *big.Int
}

func (m *AuthMessage) hash() common.Hash {
	bytes32Type, _ := abi.NewType("bytes32", "", nil)
	addressType, _ := abi.NewType("address", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)

	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: addressType}, // address
		{Type: bytes32Type}, // keccak256(timestamp)
		{Type: uint256Type}, // nonce
		{Type: bytes32Type}, // keccak256(message)
	}

	encoded, err := arguments.Pack(
		clobAuthTypeHash,
		m.Address,
		crypto.Keccak256Hash([]byte(m.Timestamp)),
		m.Nonce,
		crypto.Keccak256Hash([]byte(AuthAttestation)),
	)
	if err != nil {
		panic("failed to encode auth struct: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// digest assembles the final EIP712 hash:
// keccak256("\x19\x01" ++ domainSeparator ++ structHash)
func digest(domainSeparator, structHash common.Hash) common.Hash {
	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, domainSeparator.Bytes()...)
	data = append(data, structHash.Bytes()...)
	return crypto.Keccak256Hash(data)
}

// OrderDigest computes the hash an order signature commits to.
func OrderDigest(domain *ExchangeDomain, order *Order) (common.Hash, error) {
	typed, err := orderToTypedData(order)
	if err != nil {
		return common.Hash{}, err
	}
	return digest(domain.Hash(), typed.hash()), nil
}

// AuthDigest computes the hash the L1 handshake signature commits to.
func AuthDigest(chainID *big.Int, msg *AuthMessage) common.Hash {
	return digest(authDomainHash(chainID), msg.hash())
}

// orderToTypedData converts an Order to its numeric hashing form
func orderToTypedData(order *Order) (*orderTypedData, error) {
	salt, ok := new(big.Int).SetString(order.Salt, 10)
	if !ok {
		return nil, ErrInvalidOrderSalt
	}

	tokenID, ok := new(big.Int).SetString(order.TokenID, 10)
	if !ok {
		return nil, ErrInvalidTokenID
	}

	makerAmount, ok := new(big.Int).SetString(order.MakerAmount, 10)
	if !ok {
		return nil, ErrInvalidMakerAmount
	}

	takerAmount, ok := new(big.Int).SetString(order.TakerAmount, 10)
	if !ok {
		return nil, ErrInvalidTakerAmount
	}

	expiration, ok := new(big.Int).SetString(order.Expiration, 10)
	if !ok {
		expiration = big.NewInt(0)
	}

	nonce, ok := new(big.Int).SetString(order.Nonce, 10)
	if !ok {
		nonce = big.NewInt(0)
	}

	feeRateBps, ok := new(big.Int).SetString(order.FeeRateBps, 10)
	if !ok {
		feeRateBps = big.NewInt(0)
	}

	return &orderTypedData{
		Salt:          salt,
		Maker:         common.HexToAddress(order.Maker),
		Signer:        common.HexToAddress(order.Signer),
		Taker:         common.HexToAddress(order.Taker),
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    expiration,
		Nonce:         nonce,
		FeeRateBps:    feeRateBps,
		Side:          uint8(order.Side),
		SignatureType: uint8(order.SignatureType),
	}, nil
}
