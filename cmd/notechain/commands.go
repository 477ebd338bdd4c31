package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/five82/notechain/internal/app"
	"github.com/five82/notechain/internal/controller"
	"github.com/five82/notechain/internal/notes"
	"github.com/five82/notechain/internal/state"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "Print the notes on the ledger",
		Action: runList,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Only show notes whose filename contains this text",
			},
		},
	}
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Pin a file and record it on the ledger",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Filename recorded on the ledger (defaults to the file's base name)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := strings.TrimSpace(cmd.Args().First())
			if path == "" {
				return errors.New("upload: missing <path>")
			}
			return withSession(ctx, cmd, func(ctx context.Context, rt *app.Runtime) error {
				pending, err := rt.Controller.SelectFile(path, cmd.String("name"))
				if err != nil {
					return err
				}
				if err := rt.Controller.Upload(ctx); err != nil {
					return err
				}
				fmt.Printf("uploaded %s (%s)\n", pending.Filename, humanize.Bytes(uint64(pending.Size)))
				return nil
			})
		},
	}
}

func voteCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<index>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			index, err := parseIndex(cmd.Args().First())
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return withSession(ctx, cmd, func(ctx context.Context, rt *app.Runtime) error {
				vote := rt.Controller.Like
				if name == "dislike" {
					vote = rt.Controller.Dislike
				}
				if err := vote(ctx, index); err != nil {
					return err
				}
				snap := rt.Controller.Snapshot()
				if index < len(snap.Notes) {
					n := snap.Notes[index]
					fmt.Printf("%sd note #%d %s (%d likes, %d dislikes)\n", name, index, n.Filename, n.Likes, n.Dislikes)
				} else {
					fmt.Printf("%sd note #%d\n", name, index)
				}
				return nil
			})
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Download the file of the note at an index",
		ArgsUsage: "<index>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory to save into (defaults to download_dir)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			index, err := parseIndex(cmd.Args().First())
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}
			return withSession(ctx, cmd, func(ctx context.Context, rt *app.Runtime) error {
				dir := cmd.String("dir")
				if dir == "" {
					dir = rt.Config.DownloadDir
				}
				path, err := rt.Controller.Download(ctx, index, dir)
				if err != nil {
					return err
				}
				fmt.Println(path)
				return nil
			})
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Upload every file dropped into a directory",
		ArgsUsage: "<dir>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := strings.TrimSpace(cmd.Args().First())
			if dir == "" {
				return errors.New("watch: missing <dir>")
			}
			return withSession(ctx, cmd, func(ctx context.Context, rt *app.Runtime) error {
				fmt.Printf("watching %s, press ctrl+c to stop\n", dir)
				return app.Watch(ctx, dir, rt.Controller, 0, rt.Logger, func(res app.UploadResult) {
					if res.Err != nil {
						fmt.Fprintf(os.Stderr, "%s: %v\n", res.Path, res.Err)
						return
					}
					fmt.Printf("uploaded %s\n", res.Path)
				})
			})
		},
	}
}

func runList(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd, func(_ context.Context, rt *app.Runtime) error {
		snap := rt.Controller.Snapshot()
		if snap.Load == state.LoadFailed {
			return fmt.Errorf("load notes: %w", snap.LoadErr)
		}
		writeList(os.Stdout, rt.Controller.View(cmd.String("filter")))
		return nil
	})
}

// withSession opens the runtime, connects the wallet (which performs the
// initial reload) and runs fn.
func withSession(ctx context.Context, cmd *cli.Command, fn func(context.Context, *app.Runtime) error) error {
	rt, err := app.Open(ctx, appOptions(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if _, err := rt.Controller.Connect(ctx); err != nil {
		return fmt.Errorf("connect wallet: %w", err)
	}
	return fn(ctx, rt)
}

// writeList prints the view as a table followed by totals.
func writeList(w io.Writer, view controller.View) {
	if len(view.Entries) == 0 {
		if view.Filter == "" {
			fmt.Fprintln(w, "no notes yet")
			return
		}
		fmt.Fprintf(w, "no notes match %q\n", view.Filter)
		if len(view.Suggestions) > 0 {
			fmt.Fprintf(w, "did you mean: %s\n", strings.Join(view.Suggestions, ", "))
		}
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "FILE", "UPLOADER", "LIKES", "DISLIKES", "CID")
	for _, e := range view.Entries {
		cid := e.Note.ContentID
		if !e.Note.HasContent() {
			cid = "missing file hash"
		}
		t.Row(
			strconv.Itoa(e.Index),
			e.Note.Filename,
			notes.ShortAddress(e.Note.UploaderLabel(), 6, 4),
			strconv.FormatUint(e.Note.Likes, 10),
			strconv.FormatUint(e.Note.Dislikes, 10),
			cid,
		)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d notes, %d likes, %d dislikes\n", view.Stats.Notes, view.Stats.Likes, view.Stats.Dislikes)
}

func parseIndex(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("missing <index>")
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index %q", raw)
	}
	return index, nil
}
