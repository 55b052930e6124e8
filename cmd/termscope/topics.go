package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kiranshivaraju/termscope/internal/topics"
	"github.com/kiranshivaraju/termscope/pkg/models"
	"github.com/spf13/cobra"
)

func newTopicsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Run and inspect the topic generation job",
	}
	cmd.AddCommand(newTopicsStartCmd(a), newTopicsStatusCmd(a), newTopicsCancelCmd(a))
	return cmd
}

func newTopicsStartCmd(a *app) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start topic generation",
		Long: `Starts topic generation on the backend. With --wait, polls until the job is
done and prints the topics; an interrupt asks the backend to cancel the job.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				mu   sync.Mutex
				last = -1
			)
			ctrl := topics.NewController(a.client,
				topics.WithPollInterval(a.cfg.Workflow.PollInterval),
				topics.WithCallTimeout(a.cfg.API.Timeout),
				topics.WithLogger(a.logger),
				topics.WithObserver(func(s models.JobSnapshot) {
					mu.Lock()
					defer mu.Unlock()
					pct := int(s.Progress * 100)
					if wait && s.Phase == models.JobPhaseRunning && pct != last {
						last = pct
						cmd.Printf("progress %d%%\n", pct)
					}
				}),
			)
			defer ctrl.Close()

			if _, err := ctrl.Start(cmd.Context()); err != nil {
				return err
			}
			if !wait {
				cmd.Println("Topic generation started")
				return nil
			}

			snap, err := ctrl.Wait(cmd.Context())
			if err != nil {
				return cancelOnInterrupt(cmd, ctrl, a.cfg.API.Timeout)
			}
			printTopics(cmd, snap.Result)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish and print the topics")
	return cmd
}

// cancelOnInterrupt asks the backend to cancel once; it is never retried.
func cancelOnInterrupt(cmd *cobra.Command, ctrl *topics.Controller, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	snap, err := ctrl.Cancel(ctx)
	switch {
	case err == nil && snap.Phase == models.JobPhaseDone:
		printTopics(cmd, snap.Result)
		return nil
	case err == nil:
		cmd.Println("Topic generation cancelled")
		return nil
	case errors.Is(err, topics.ErrCancelNotConfirmed):
		return fmt.Errorf("interrupted; %w, the job may still be running", err)
	default:
		return fmt.Errorf("interrupted; %w", err)
	}
}

func newTopicsStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the backend's topic job status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.API.Timeout)
			defer cancel()

			poll, err := a.client.PollTopicJob(ctx)
			if err != nil {
				return fmt.Errorf("polling topic job: %w", err)
			}
			switch poll.Status {
			case models.TopicStatusRunning:
				cmd.Printf("running %d%%\n", int(poll.Progress*100))
			case models.TopicStatusDone:
				printTopics(cmd, poll.Result)
			default:
				cmd.Println(poll.Status)
			}
			return nil
		},
	}
}

func newTopicsCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Ask the backend to cancel topic generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.API.Timeout)
			defer cancel()

			status, err := a.client.CancelTopicJob(ctx)
			if err != nil {
				return fmt.Errorf("cancelling topic job: %w", err)
			}
			if status != models.TopicStatusCancelled {
				return fmt.Errorf("%w: backend reported %q", topics.ErrCancelNotConfirmed, status)
			}
			cmd.Println("Topic generation cancelled")
			return nil
		},
	}
}

func printTopics(cmd *cobra.Command, result []models.Topic) {
	if len(result) == 0 {
		cmd.Println("No topics found")
		return
	}
	for i, topic := range result {
		cmd.Printf("%2d. %s\n", i+1, strings.Join(topic, ", "))
	}
}
