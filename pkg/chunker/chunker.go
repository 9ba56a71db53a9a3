// Package chunker splits text into overlapping token windows using a
// deterministic byte-pair encoding, so a given input always produces
// the same chunk sequence.
package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultTargetTokens is the default window size in tokens.
const DefaultTargetTokens = 1200

// DefaultOverlap is the default number of overlapping tokens between
// consecutive windows.
const DefaultOverlap = 200

// encodingName pins the BPE vocabulary.
const encodingName = "cl100k_base"

// Codec is the token encoder/decoder the chunker windows over.
type Codec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c tiktokenCodec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}

type Chunker struct {
	codec Codec
}

// New creates a chunker backed by the cl100k_base encoding.
func New() (*Chunker, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encodingName, err)
	}
	return &Chunker{codec: tiktokenCodec{enc: enc}}, nil
}

// NewWithCodec creates a chunker over a custom codec.
func NewWithCodec(codec Codec) *Chunker {
	return &Chunker{codec: codec}
}

// Chunk splits text into windows of targetTokens tokens advancing by
// targetTokens-overlap each step; the last window holds whatever
// remains. Empty input produces no windows.
func (c *Chunker) Chunk(text string, targetTokens, overlap int) []string {
	if targetTokens <= 0 {
		targetTokens = DefaultTargetTokens
	}
	if overlap < 0 || overlap >= targetTokens {
		overlap = DefaultOverlap
		if overlap >= targetTokens {
			overlap = targetTokens / 4
		}
	}

	tokens := c.codec.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	step := targetTokens - overlap
	if step < 1 {
		step = 1
	}

	chunks := make([]string, 0, len(tokens)/step+1)
	for start := 0; ; start += step {
		end := start + targetTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.codec.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}

	return chunks
}
