package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/kiranshivaraju/termscope/internal/documents"
	"github.com/spf13/cobra"
)

func newDocsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Browse and edit documents",
	}
	svc := func() *documents.Service {
		return documents.NewService(a.client, documents.WithLogger(a.logger))
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := svc().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing documents: %w", err)
			}
			sort.SliceStable(docs, func(i, j int) bool { return docs[i].Date.After(docs[j].Date) })
			for _, d := range docs {
				cmd.Printf("%s  %s\n", d.Date.Format("2006-01-02"), d.ID)
			}
			cmd.Printf("Total: %d documents\n", len(docs))
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print a document's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := svc().Content(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("getting document: %w", err)
			}
			cmd.Println(content)
			return nil
		},
	}

	preview := &cobra.Command{
		Use:   "preview ID",
		Short: "Print the start of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := svc().Preview(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("getting document: %w", err)
			}
			if p.Truncated {
				cmd.Println(p.Preview + "...")
				return nil
			}
			cmd.Println(p.Preview)
			return nil
		},
	}

	var fromFile string
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Replace a document's content",
		Long:  `Replaces the content with the given file, or standard input when --file is "-".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd, fromFile)
			if err != nil {
				return err
			}
			if err := svc().Update(cmd.Context(), args[0], content); err != nil {
				return fmt.Errorf("updating document: %w", err)
			}
			cmd.Printf("Updated %s\n", args[0])
			return nil
		},
	}
	update.Flags().StringVarP(&fromFile, "file", "f", "-", "File with the new content")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc().Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting document: %w", err)
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, preview, update, del)
	return cmd
}

func readContent(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return string(data), nil
}
