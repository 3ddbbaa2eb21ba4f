// Package adapter translates the hosting API's vocabulary (numeric chain
// ids, token contract addresses) into the engine's chain-name/asset-symbol
// vocabulary and shapes engine results for the quote response.
package adapter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"settlement-times/internal/engine"
)

// chainNamesByID maps caller chain ids onto the dataset's chain names.
var chainNamesByID = map[uint64]string{
	1:          "ethereum",
	10:         "optimism",
	56:         "bnb",
	130:        "unichain",
	137:        "polygon",
	146:        "sonic",
	324:        "zksync",
	2020:       "ronin",
	8453:       "base",
	33139:      "apechain",
	34443:      "mode",
	42161:      "arbitrum",
	43114:      "avalanche_c",
	48900:      "zircuit",
	57073:      "ink",
	59144:      "linea",
	80094:      "berachain",
	81457:      "blast",
	167000:     "taiko",
	534352:     "scroll",
	728126428:  "tron",
	1399811149: "solana",
}

// assetSymbolsByAddress restricts the engine vocabulary to the assets the
// dataset tracks. Addresses are the hub (mainnet) token contracts.
var assetSymbolsByAddress = map[common.Address]string{
	common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"): "USDC",
	common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"): "WETH",
	common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"): "USDT",
	common.HexToAddress("0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf"): "cbBTC",
	common.HexToAddress("0xD7D2802f6b19843ac4DfE25022771FD83b5A7464"): "xPufETH",
}

// ChainName resolves a numeric chain id to the dataset chain name.
func ChainName(chainID uint64) (string, bool) {
	name, ok := chainNamesByID[chainID]
	return name, ok
}

// AssetSymbol resolves a token contract address to its symbol. Unknown or
// unparsable addresses resolve to the empty symbol, which skips the
// asset-specific tiers while keeping the category fallback reachable.
func AssetSymbol(address string) string {
	if !common.IsHexAddress(address) {
		return ""
	}
	return assetSymbolsByAddress[common.HexToAddress(address)]
}

// SettlementEstimate is the JSON shape merged into the hosting API's quote
// response. A nil value means the field is omitted entirely, never emitted
// as null or zeros.
type SettlementEstimate struct {
	P25Minutes      json.Number       `json:"p25Minutes"`
	P75Minutes      json.Number       `json:"p75Minutes"`
	DisplayRange    string            `json:"displayRange"`
	ConfidenceLevel engine.Confidence `json:"confidenceLevel"`
	DataSource      engine.DataSource `json:"dataSource"`
	AssetSymbol     string            `json:"assetSymbol,omitempty"`
	SampleSize      int               `json:"sampleSize"`
	Note            string            `json:"note,omitempty"`
	LastUpdated     time.Time         `json:"lastUpdated"`
}

// FromEstimate shapes an engine result for the response payload. Percentiles
// pass through unrounded.
func FromEstimate(est engine.Estimate) *SettlementEstimate {
	return &SettlementEstimate{
		P25Minutes:      json.Number(est.P25Minutes.String()),
		P75Minutes:      json.Number(est.P75Minutes.String()),
		DisplayRange:    DisplayRange(est),
		ConfidenceLevel: est.Confidence,
		DataSource:      est.DataSource,
		AssetSymbol:     est.AssetSymbol,
		SampleSize:      est.SampleSize,
		Note:            est.Note,
		LastUpdated:     est.LastUpdated,
	}
}

// DisplayRange renders the "12-30 minutes" form shown to end users.
func DisplayRange(est engine.Estimate) string {
	return fmt.Sprintf("%s-%s minutes", est.P25Minutes.String(), est.P75Minutes.String())
}

// TransferQuery carries the raw caller inputs of one quote request.
type TransferQuery struct {
	OriginChainID      uint64
	DestinationChainID uint64
	AssetAddress       string
	AmountUSD          float64
}

// Adapter calls the engine with translated inputs.
type Adapter struct {
	engine *engine.Engine
}

// New wires an engine into an Adapter.
func New(eng *engine.Engine) *Adapter {
	return &Adapter{engine: eng}
}

// EstimateForTransfer resolves a settlement estimate for caller-vocabulary
// inputs. An unknown chain id translates to an empty name and falls through
// to an absent result. nil means absent: callers omit the field.
func (a *Adapter) EstimateForTransfer(q TransferQuery) (*SettlementEstimate, error) {
	origin, _ := ChainName(q.OriginChainID)
	destination, _ := ChainName(q.DestinationChainID)
	return a.EstimateForRoute(origin, destination, AssetSymbol(q.AssetAddress), q.AmountUSD)
}

// EstimateForRoute resolves a settlement estimate for engine-vocabulary
// inputs. nil means absent.
func (a *Adapter) EstimateForRoute(origin, destination, asset string, amountUSD float64) (*SettlementEstimate, error) {
	est, found, err := a.engine.Resolve(origin, destination, asset, amountUSD)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return FromEstimate(est), nil
}
