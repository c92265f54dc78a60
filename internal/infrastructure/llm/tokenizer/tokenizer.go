// Package tokenizer loads the Hugging Face tokenizer.json that ships with the
// summarization model so prompts can be cut at the model's input limit.
package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/daulet/tokenizers"
)

const FileName = "tokenizer.json"

type Tokenizer struct {
	tk *tokenizers.Tokenizer
}

// FromModelDir opens <dir>/tokenizer.json.
func FromModelDir(dir string) (*Tokenizer, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("tokenizer file: %w", err)
	}
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &Tokenizer{tk: tk}, nil
}

// Encode returns token ids without special tokens.
func (t *Tokenizer) Encode(text string) []uint32 {
	ids, _ := t.tk.Encode(text, false)
	return ids
}

func (t *Tokenizer) Decode(ids []uint32) string {
	return t.tk.Decode(ids, true)
}

func (t *Tokenizer) Close() error {
	return t.tk.Close()
}
