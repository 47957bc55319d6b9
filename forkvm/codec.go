package forkvm

import (
	"bytes"
	"encoding/gob"

	"github.com/ethereum/go-ethereum/log"
)

// encodeStateDiff/decodeStateDiff serialize a StateDiff for the
// fastcache trace cache, which only stores raw bytes.
func encodeStateDiff(diff *StateDiff) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(diff); err != nil {
		log.Warn("forkvm: encode state diff failed", "err", err)
		return nil
	}
	return buf.Bytes()
}

func decodeStateDiff(raw []byte) (*StateDiff, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var diff StateDiff
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&diff); err != nil {
		log.Warn("forkvm: decode state diff failed", "err", err)
		return nil, false
	}
	return &diff, true
}
