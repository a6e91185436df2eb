package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockTag is a named block position understood by execution clients.
type BlockTag string

const (
	TagLatest    BlockTag = "latest"
	TagPending   BlockTag = "pending"
	TagEarliest  BlockTag = "earliest"
	TagSafe      BlockTag = "safe"
	TagFinalized BlockTag = "finalized"
)

var knownTags = map[BlockTag]bool{
	TagLatest:    true,
	TagPending:   true,
	TagEarliest:  true,
	TagSafe:      true,
	TagFinalized: true,
}

type blockKind uint8

const (
	kindTag blockKind = iota
	kindNumber
	kindHash
)

// BlockRef identifies a block by tag, number or hash (EIP-1898).
// The zero value is the latest block.
type BlockRef struct {
	kind             blockKind
	tag              BlockTag
	number           uint64
	hash             common.Hash
	requireCanonical bool
}

// LatestBlock returns a reference to the "latest" tag.
func LatestBlock() BlockRef { return BlockRef{kind: kindTag, tag: TagLatest} }

// BlockAt returns a reference to a block number.
func BlockAt(number uint64) BlockRef { return BlockRef{kind: kindNumber, number: number} }

// BlockWithHash returns a reference to a block hash.
func BlockWithHash(hash common.Hash, requireCanonical bool) BlockRef {
	return BlockRef{kind: kindHash, hash: hash, requireCanonical: requireCanonical}
}

// Tag returns the block tag and whether the reference is a tag.
func (b BlockRef) Tag() (BlockTag, bool) {
	if b.kind != kindTag {
		return "", false
	}
	if b.tag == "" {
		return TagLatest, true
	}
	return b.tag, true
}

// Number returns the block number and whether the reference is numeric.
func (b BlockRef) Number() (uint64, bool) { return b.number, b.kind == kindNumber }

// Hash returns the block hash and whether the reference is a hash.
func (b BlockRef) Hash() (common.Hash, bool) { return b.hash, b.kind == kindHash }

// Canonical returns the stable textual form used for cache keys.
// Equal references always produce equal strings.
func (b BlockRef) Canonical() string {
	switch b.kind {
	case kindNumber:
		return hexutil.EncodeUint64(b.number)
	case kindHash:
		if b.requireCanonical {
			return b.hash.Hex() + "!canonical"
		}
		return b.hash.Hex()
	default:
		tag, _ := b.Tag()
		return string(tag)
	}
}

func (b BlockRef) String() string { return b.Canonical() }

// MarshalJSON encodes the reference the way execution clients accept it as a parameter.
func (b BlockRef) MarshalJSON() ([]byte, error) {
	if b.kind == kindHash && b.requireCanonical {
		return json.Marshal(struct {
			BlockHash        common.Hash `json:"blockHash"`
			RequireCanonical bool        `json:"requireCanonical"`
		}{b.hash, true})
	}
	return json.Marshal(b.Canonical())
}

// UnmarshalJSON accepts a tag, a hex quantity, a 32-byte hash or an EIP-1898 object.
func (b *BlockRef) UnmarshalJSON(data []byte) error {
	ref, err := ParseBlockRef(data)
	if err != nil {
		return err
	}
	*b = ref
	return nil
}

// ParseBlockRef decodes a block parameter.
func ParseBlockRef(data []byte) (BlockRef, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return BlockRef{}, fmt.Errorf("missing block reference")
	}
	if data[0] == '{' {
		return parseBlockObject(data)
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return BlockRef{}, fmt.Errorf("block reference must be a string or object: %w", err)
	}
	if len(s) == 66 && has0xPrefix(s) {
		hash, err := parseHash(s)
		if err != nil {
			return BlockRef{}, err
		}
		return BlockWithHash(hash, false), nil
	}
	return parseBlockNumberString(s)
}

// ParseBlockNumber decodes a parameter that must be a tag or a number.
func ParseBlockNumber(data []byte) (BlockRef, error) {
	ref, err := ParseBlockRef(data)
	if err != nil {
		return BlockRef{}, err
	}
	if ref.kind == kindHash {
		return BlockRef{}, fmt.Errorf("block hash not allowed here")
	}
	return ref, nil
}

func parseBlockObject(data []byte) (BlockRef, error) {
	var obj struct {
		BlockNumber      *string `json:"blockNumber"`
		BlockHash        *string `json:"blockHash"`
		RequireCanonical bool    `json:"requireCanonical"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return BlockRef{}, fmt.Errorf("invalid block object: %w", err)
	}
	switch {
	case obj.BlockNumber != nil && obj.BlockHash != nil:
		return BlockRef{}, fmt.Errorf("cannot specify both blockHash and blockNumber")
	case obj.BlockHash != nil:
		hash, err := parseHash(*obj.BlockHash)
		if err != nil {
			return BlockRef{}, err
		}
		return BlockWithHash(hash, obj.RequireCanonical), nil
	case obj.BlockNumber != nil:
		return parseBlockNumberString(*obj.BlockNumber)
	default:
		return BlockRef{}, fmt.Errorf("block object needs blockHash or blockNumber")
	}
}

func parseBlockNumberString(s string) (BlockRef, error) {
	tag := BlockTag(strings.ToLower(strings.TrimSpace(s)))
	if knownTags[tag] {
		return BlockRef{kind: kindTag, tag: tag}, nil
	}
	n, err := ParseQuantity(s)
	if err != nil {
		return BlockRef{}, fmt.Errorf("invalid block number %q: %w", s, err)
	}
	return BlockAt(n), nil
}

// ParseQuantity decodes a 0x-prefixed hex quantity. Leading zeros are tolerated.
func ParseQuantity(s string) (uint64, error) {
	if !has0xPrefix(s) {
		return 0, fmt.Errorf("hex string without 0x prefix")
	}
	digits := s[2:]
	if digits == "" {
		return 0, fmt.Errorf("empty hex quantity")
	}
	return strconv.ParseUint(digits, 16, 64)
}

func parseHash(s string) (common.Hash, error) {
	if len(s) != 66 || !has0xPrefix(s) {
		return common.Hash{}, fmt.Errorf("invalid hash %q", s)
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return common.BytesToHash(raw), nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
