package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewPostCmd создаёт группу команд для управления публикациями.
func NewPostCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage posts",
	}

	cmd.AddCommand(
		newPostPublishCmd(clientFn, outputFn),
		newPostScheduleCmd(clientFn, outputFn),
		newPostListCmd(clientFn, outputFn),
		newPostCancelCmd(clientFn, outputFn),
		newPostHistoryCmd(clientFn, outputFn),
	)

	return cmd
}

func newPostPublishCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var caption string
	var photos []string
	var videos []string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a post immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			resp, err := client.PublishNow(PublishNowRequest{
				Caption: caption,
				Photos:  photos,
				Videos:  videos,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Published: media id %s", resp.MediaID))
			out.Print(
				[]string{"MEDIA_ID", "PUBLISHED_AT"},
				[][]string{{resp.MediaID, resp.PublishedAt}},
				resp,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&caption, "caption", "", "Post caption")
	cmd.Flags().StringSliceVar(&photos, "photo", nil, "Photo file name (repeatable)")
	cmd.Flags().StringSliceVar(&videos, "video", nil, "Video file name (repeatable)")

	return cmd
}

func newPostScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var caption string
	var photos []string
	var videos []string
	var at string
	var recurrence string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a post for later publication",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			scheduledAt, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --at value %q, expected RFC 3339: %w", at, err)
			}

			post, err := client.SchedulePost(SchedulePostRequest{
				Caption:     caption,
				Photos:      photos,
				Videos:      videos,
				ScheduledAt: scheduledAt,
				Recurrence:  recurrence,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post scheduled: %s", post.ID))
			out.Print(
				[]string{"ID", "SCHEDULED_AT", "STATUS", "RECURRENCE"},
				[][]string{{post.ID, post.ScheduledAt, post.Status, post.Recurrence}},
				post,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&caption, "caption", "", "Post caption")
	cmd.Flags().StringSliceVar(&photos, "photo", nil, "Photo file name (repeatable)")
	cmd.Flags().StringSliceVar(&videos, "video", nil, "Video file name (repeatable)")
	cmd.Flags().StringVar(&at, "at", "", "Publication time, RFC 3339")
	cmd.Flags().StringVar(&recurrence, "recurrence", "", "Cron expression for recurring posts")
	cmd.MarkFlagRequired("at")

	return cmd
}

func newPostListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			posts, err := client.ListScheduled()
			if err != nil {
				return err
			}

			headers := []string{"ID", "SCHEDULED_AT", "STATUS", "MEDIA", "ATTEMPTS", "CAPTION"}
			rows := make([][]string, len(posts))
			for i, p := range posts {
				rows[i] = []string{
					p.ID, p.ScheduledAt, p.Status,
					strconv.Itoa(len(p.Photos) + len(p.Videos)),
					strconv.Itoa(p.Attempts),
					truncateCaption(p.Caption),
				}
			}

			out.Print(headers, rows, posts)
			return nil
		},
	}
}

func newPostCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a scheduled post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.CancelScheduled(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post cancelled: %s", args[0]))
			return nil
		},
	}
}

func newPostHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show pending posts and publication outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			items, err := client.History()
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "SCHEDULED_AT", "PUBLISHED_AT", "MEDIA_ID", "ERROR"}
			rows := make([][]string, len(items))
			for i, it := range items {
				rows[i] = []string{
					it.ID, it.Status, it.ScheduledAt, it.PublishedAt, it.MediaID, it.Error,
				}
			}

			out.Print(headers, rows, items)
			return nil
		},
	}
}

func truncateCaption(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
