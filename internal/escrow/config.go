// internal/escrow/config.go
package escrow

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// LamportsPerSOL - количество lamports в одном SOL.
const LamportsPerSOL = 1_000_000_000

// RawConfig - параметры рынка в том виде, в каком их вводит пользователь.
type RawConfig struct {
	Collection           string `mapstructure:"collection" json:"collection"`
	TokenMint            string `mapstructure:"token_mint" json:"token_mint"`
	Authority            string `mapstructure:"authority" json:"authority"`
	BaseURI              string `mapstructure:"base_uri" json:"base_uri"`
	MinIndex             int64  `mapstructure:"min_index" json:"min_index"`
	MaxIndex             int64  `mapstructure:"max_index" json:"max_index"`
	TokenPerNft          int64  `mapstructure:"token_per_nft" json:"token_per_nft"`
	TokenFee             int64  `mapstructure:"token_fee" json:"token_fee"`
	SolFee               string `mapstructure:"sol_fee" json:"sol_fee"` // десятичное число SOL, например "0.5"
	EscrowName           string `mapstructure:"escrow_name" json:"escrow_name"`
	InitialFundingAmount int64  `mapstructure:"initial_funding_amount" json:"initial_funding_amount"`
}

// EscrowConfig описывает один рынок обмена. Значение неизменяемо и передаётся по значению.
type EscrowConfig struct {
	Collection           solana.PublicKey
	TokenMint            solana.PublicKey
	Authority            solana.PublicKey
	BaseURI              string
	MinIndex             uint64
	MaxIndex             uint64
	TokenPerNft          uint64
	TokenFee             uint64
	SolFeeLamports       uint64
	EscrowName           string
	InitialFundingAmount uint64
}

// SwapCost - сколько токенов кошелёк отдаёт за один NFT.
func (c EscrowConfig) SwapCost() uint64 {
	return c.TokenPerNft + c.TokenFee
}

// ValidateConfig проверяет сырые параметры по порядку: адреса, диапазон, курс, имя.
func ValidateConfig(raw RawConfig) (EscrowConfig, error) {
	var cfg EscrowConfig
	var err error

	if cfg.Collection, err = ParseAddress("collection", raw.Collection); err != nil {
		return EscrowConfig{}, err
	}
	if cfg.TokenMint, err = ParseAddress("token_mint", raw.TokenMint); err != nil {
		return EscrowConfig{}, err
	}
	if cfg.Authority, err = ParseAddress("authority", raw.Authority); err != nil {
		return EscrowConfig{}, err
	}

	if raw.MinIndex < 0 {
		return EscrowConfig{}, &Error{Kind: KindInvalidRange, Field: "min_index", Expected: ">= 0", Actual: strconv.FormatInt(raw.MinIndex, 10)}
	}
	if raw.MinIndex > raw.MaxIndex {
		return EscrowConfig{}, &Error{
			Kind:     KindInvalidRange,
			Field:    "max_index",
			Expected: fmt.Sprintf(">= %d", raw.MinIndex),
			Actual:   strconv.FormatInt(raw.MaxIndex, 10),
		}
	}
	cfg.MinIndex, cfg.MaxIndex = uint64(raw.MinIndex), uint64(raw.MaxIndex)

	if raw.TokenPerNft <= 0 {
		return EscrowConfig{}, &Error{Kind: KindInvalidRate, Field: "token_per_nft", Expected: "> 0", Actual: strconv.FormatInt(raw.TokenPerNft, 10)}
	}
	if raw.TokenFee < 0 {
		return EscrowConfig{}, &Error{Kind: KindInvalidRate, Field: "token_fee", Expected: ">= 0", Actual: strconv.FormatInt(raw.TokenFee, 10)}
	}
	if raw.InitialFundingAmount < 0 {
		return EscrowConfig{}, &Error{Kind: KindInvalidRate, Field: "initial_funding_amount", Expected: ">= 0", Actual: strconv.FormatInt(raw.InitialFundingAmount, 10)}
	}
	cfg.TokenPerNft, cfg.TokenFee = uint64(raw.TokenPerNft), uint64(raw.TokenFee)
	cfg.InitialFundingAmount = uint64(raw.InitialFundingAmount)

	if cfg.SolFeeLamports, err = ParseSolAmount(raw.SolFee); err != nil {
		return EscrowConfig{}, &Error{Kind: KindInvalidRate, Field: "sol_fee", Actual: raw.SolFee, Err: err}
	}

	cfg.EscrowName = strings.TrimSpace(raw.EscrowName)
	if cfg.EscrowName == "" {
		return EscrowConfig{}, &Error{Kind: KindInvalidName, Field: "escrow_name"}
	}
	cfg.BaseURI = strings.TrimSpace(raw.BaseURI)

	return cfg, nil
}

// solAmountPattern - только запись вида 12, 12.5 или .5: без знака, дробей и экспоненты.
var solAmountPattern = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// ParseSolAmount переводит десятичную сумму SOL в lamports без потери точности.
// Пустая строка - ноль.
func ParseSolAmount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if !solAmountPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}

	lamports := r.Mul(r, new(big.Rat).SetInt64(LamportsPerSOL))
	if !lamports.IsInt() {
		return 0, fmt.Errorf("%q has more than 9 fractional digits", s)
	}
	n := lamports.Num()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%q overflows", s)
	}
	return n.Uint64(), nil
}
