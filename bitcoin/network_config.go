package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// NetworkConfig holds the chain parameters and default service endpoints for
// a network.
type NetworkConfig struct {
	Name      string
	Params    *chaincfg.Params
	BridgeURL string
	WalletURL string
}

// GetNetworkConfig returns configuration for the named network. The network
// is always passed in by the caller's configuration.
func GetNetworkConfig(network string) (*NetworkConfig, error) {
	switch network {
	case "mainnet":
		return &NetworkConfig{
			Name:      "Mainnet",
			Params:    &chaincfg.MainNetParams,
			BridgeURL: "https://bridge.todo-token.net",
			WalletURL: "http://localhost:3321",
		}, nil
	case "testnet":
		return &NetworkConfig{
			Name:      "Testnet",
			Params:    &chaincfg.TestNet3Params,
			BridgeURL: "https://testnet.bridge.todo-token.net",
			WalletURL: "http://localhost:3321",
		}, nil
	case "signet":
		return &NetworkConfig{
			Name:      "Signet",
			Params:    &chaincfg.SigNetParams,
			BridgeURL: "https://signet.bridge.todo-token.net",
			WalletURL: "http://localhost:3321",
		}, nil
	case "regtest":
		return &NetworkConfig{
			Name:      "Regtest",
			Params:    &chaincfg.RegressionNetParams,
			BridgeURL: "http://localhost:8080",
			WalletURL: "http://localhost:3321",
		}, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}
