package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RawLog is one on-chain log entry, unparsed beyond topic/data separation.
// Topics[0] identifies the event signature; later topics carry indexed
// arguments padded to 32 bytes.
type RawLog struct {
	Address  common.Address `json:"address"`
	Topics   []common.Hash  `json:"topics"`
	Data     hexutil.Bytes  `json:"data"`
	LogIndex uint64         `json:"log_index"`
}

// Topic0 returns the event signature hash, or the zero hash when absent.
func (l RawLog) Topic0() common.Hash {
	if len(l.Topics) == 0 {
		return common.Hash{}
	}
	return l.Topics[0]
}
