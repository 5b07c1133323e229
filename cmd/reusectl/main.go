// Command reusectl is an offline operator CLI for inspecting and
// merging reuse-model files and checking the WordPiece tokenizer
// against its exact rules.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fastbot/reuse-core/reuseembed"
	"github.com/fastbot/reuse-core/reusemodel"
	"github.com/fastbot/reuse-core/reusestore"
)

var rootCmd = &cobra.Command{
	Use:   "reusectl",
	Short: "reusectl inspects and merges reuse-model files",
	Long:  `reusectl is an operator tool for the reuse-driven action selection core: inspecting .fbm model files, merging sibling-platform models, and checking the text tokenizer.`,
}

func main() {
	rootCmd.AddCommand(inspectCmd(), mergeCmd(), vocabCheckCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "print a summary of a reuse-model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := reusestore.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}

			var totalWidgets int64
			for _, entry := range snap.Entries {
				totalWidgets += entry.TotalCount()
			}

			fmt.Printf("actions:       %d\n", len(snap.Entries))
			fmt.Printf("attrs rows:    %d\n", len(snap.Attrs))
			fmt.Printf("total widgets: %d\n", totalWidgets)
			return nil
		},
	}
}

func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <dst> <src...>",
		Short: "merge one or more reuse-model files into dst",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dstPath, srcPaths := args[0], args[1:]

			merged, err := loadOrEmpty(dstPath)
			if err != nil {
				return fmt.Errorf("merge: load dst: %w", err)
			}

			for _, src := range srcPaths {
				snap, err := reusestore.LoadFile(src)
				if err != nil {
					return fmt.Errorf("merge: load %s: %w", src, err)
				}
				mergeInto(merged, snap)
			}

			if err := reusestore.SaveFile(dstPath, merged); err != nil {
				return fmt.Errorf("merge: save dst: %w", err)
			}
			fmt.Printf("merged %d source files into %s (%d actions)\n", len(srcPaths), dstPath, len(merged.Entries))
			return nil
		},
	}
}

func vocabCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocab-check <vocab> <text>",
		Short: "tokenize text against a vocabulary file and print the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vocabPath, text := args[0], args[1]

			vocab, err := reuseembed.LoadVocabFile(vocabPath)
			if err != nil {
				return fmt.Errorf("vocab-check: %w", err)
			}

			tok := reuseembed.NewTokenizer(vocab, nil)
			enc := tok.Encode(text)

			n := trimmedLength(enc.InputIDs)
			fmt.Printf("input_ids:      %v\n", enc.InputIDs[:n])
			fmt.Printf("attention_mask: %v\n", enc.AttentionMask[:n])
			return nil
		},
	}
}

func loadOrEmpty(path string) (*reusestore.Snapshot, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &reusestore.Snapshot{
			Entries: make(map[uint64]*reusemodel.ReuseEntry),
			Attrs:   make(map[uint64]reusemodel.ActionSimilarityAttributes),
		}, nil
	}
	return reusestore.LoadFile(path)
}

// trimmedLength returns the index of the first PAD token, for
// display only — the underlying sequence is always full length.
func trimmedLength(ids []int32) int {
	for i, id := range ids {
		if id == reuseembed.TokenPAD {
			return i
		}
	}
	return len(ids)
}
