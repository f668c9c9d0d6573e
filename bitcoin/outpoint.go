package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"todo-ledger/core/token"
)

// WireOutPoint converts a record reference into a wire outpoint.
func WireOutPoint(ref token.Outpoint) (*wire.OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(ref.TxID)
	if err != nil {
		return nil, fmt.Errorf("invalid txid %q: %w", ref.TxID, err)
	}
	return wire.NewOutPoint(hash, ref.Vout), nil
}

// OutpointFromWire converts a wire outpoint into a record reference.
func OutpointFromWire(op wire.OutPoint) token.Outpoint {
	return token.Outpoint{TxID: op.Hash.String(), Vout: op.Index}
}
