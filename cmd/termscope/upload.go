package main

import (
	"fmt"

	"github.com/kiranshivaraju/termscope/internal/ingest"
	"github.com/kiranshivaraju/termscope/pkg/models"
	"github.com/spf13/cobra"
)

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload text files as documents",
		Long: `Creates one document per file, in order, then recomputes the index once.
If a file fails, the documents already created are kept and the index is not recomputed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]ingest.File, 0, len(args))
			for _, path := range args {
				files = append(files, ingest.PathFile(path))
			}

			in := ingest.New(a.client,
				ingest.WithCallTimeout(a.cfg.API.Timeout),
				ingest.WithLogger(a.logger),
				ingest.WithObserver(func(p models.UploadProgress) {
					if p.Active && p.Completed > 0 {
						cmd.Printf("uploaded %d/%d\n", p.Completed, p.Total)
					}
				}),
			)
			defer in.Close()

			p, err := in.Upload(cmd.Context(), files)
			if err != nil {
				return fmt.Errorf("upload failed after %d/%d files: %w", p.Completed, p.Total, err)
			}
			cmd.Printf("Upload complete: %d documents, index recomputed\n", p.Total)
			return nil
		},
	}
}
