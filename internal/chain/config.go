package chain

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mapprotocol/compass-notary/core"
	"github.com/mapprotocol/compass-notary/pkg/msg"
	"github.com/pkg/errors"
)

const (
	DefaultGasLimit           = 1000000
	DefaultGasPrice           = 50000000000
	DefaultBlockConfirmations = 3
	DefaultGasMultiplier      = 1
	DefaultProposalLimit      = 64

	MinGasLimit = 21000
	MaxGasLimit = 10000000
)

// Chain specific options
var (
	NotaryOpt             = "notary"
	MaxGasPriceOpt        = "maxGasPrice"
	GasLimitOpt           = "gasLimit"
	GasMultiplier         = "gasMultiplier"
	LimitMultiplier       = "limitMultiplier"
	BlockConfirmationsOpt = "blockConfirmations"
	LegacyOpt             = "legacy"
	ProposalLimitOpt      = "proposalLimit"
)

// Config encapsulates all necessary parameters in ethereum compatible forms
type Config struct {
	Name               string      // Human-readable chain name
	Id                 msg.ChainId // ChainID, also the EIP-155 signing id
	Endpoint           string      // url for rpc endpoint
	From               string      // address of key to use
	KeystorePath       string      // Location of keyfile
	BlockstorePath     string
	FreshStart         bool // Disables loading from blockstore at start
	NotaryContract     common.Address
	GasLimit           *big.Int
	MaxGasPrice        *big.Int
	GasMultiplier      float64
	LimitMultiplier    float64
	BlockConfirmations uint64
	Legacy             bool  // Sign legacy transactions instead of EIP-1559
	ProposalLimit      int64 // Upper bound of proposals read per query
}

// ParseConfig uses a core.ChainConfig to construct a corresponding Config
func ParseConfig(chainCfg *core.ChainConfig) (*Config, error) {
	config := &Config{
		Name:               chainCfg.Name,
		Id:                 chainCfg.Id,
		Endpoint:           chainCfg.Endpoint,
		From:               chainCfg.From,
		KeystorePath:       chainCfg.KeystorePath,
		BlockstorePath:     chainCfg.BlockstorePath,
		FreshStart:         chainCfg.FreshStart,
		GasLimit:           big.NewInt(DefaultGasLimit),
		MaxGasPrice:        big.NewInt(DefaultGasPrice),
		GasMultiplier:      DefaultGasMultiplier,
		LimitMultiplier:    DefaultGasMultiplier,
		BlockConfirmations: DefaultBlockConfirmations,
		ProposalLimit:      DefaultProposalLimit,
	}

	contract, ok := chainCfg.Opts[NotaryOpt]
	if !ok || contract == "" {
		return nil, fmt.Errorf("must provide opts.%s field for ethereum config", NotaryOpt)
	}
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid %s address %q", NotaryOpt, contract)
	}
	config.NotaryContract = common.HexToAddress(contract)

	if gasPrice, ok := chainCfg.Opts[MaxGasPriceOpt]; ok {
		price := big.NewInt(0)
		_, pass := price.SetString(gasPrice, 10)
		if pass {
			config.MaxGasPrice = price
		} else {
			return nil, errors.New("unable to parse max gas price")
		}
	}

	if gasLimit, ok := chainCfg.Opts[GasLimitOpt]; ok {
		limit := big.NewInt(0)
		_, pass := limit.SetString(gasLimit, 10)
		if pass {
			config.GasLimit = limit
		} else {
			return nil, errors.New("unable to parse gas limit")
		}
	}

	if gasMultiplier, ok := chainCfg.Opts[GasMultiplier]; ok {
		float, err := strconv.ParseFloat(gasMultiplier, 64)
		if err == nil {
			config.GasMultiplier = float
		} else {
			return nil, errors.New("unable to parse gasMultiplier to float")
		}
	}

	if limitMultiplier, ok := chainCfg.Opts[LimitMultiplier]; ok {
		float, err := strconv.ParseFloat(limitMultiplier, 64)
		if err == nil {
			config.LimitMultiplier = float
		} else {
			return nil, errors.New("unable to parse limitMultiplier to float")
		}
	}

	if blockConfirmations, ok := chainCfg.Opts[BlockConfirmationsOpt]; ok && blockConfirmations != "" {
		val, err := strconv.ParseUint(blockConfirmations, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse %s", BlockConfirmationsOpt)
		}
		config.BlockConfirmations = val
	}

	if legacy, ok := chainCfg.Opts[LegacyOpt]; ok && legacy != "" {
		v, err := strconv.ParseBool(legacy)
		if err != nil {
			return nil, fmt.Errorf("unable to parse %s", LegacyOpt)
		}
		config.Legacy = v
	}

	if limit, ok := chainCfg.Opts[ProposalLimitOpt]; ok && limit != "" {
		v, err := strconv.ParseInt(limit, 10, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("unable to parse %s", ProposalLimitOpt)
		}
		config.ProposalLimit = v
	}

	return config, nil
}
