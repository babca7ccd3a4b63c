package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"coverdance.app/internal/persistence/archive"
	"coverdance.app/internal/persistence/indexdb"
	journal "coverdance.app/internal/persistence/log"
	"coverdance.app/internal/persistence/save"
	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/rating"
	"coverdance.app/internal/sim/session"
)

func newRatingsCmd(opts *rootOptions) *cobra.Command {
	var (
		top   int
		teams bool
	)
	cmd := &cobra.Command{
		Use:   "ratings",
		Short: "Show the dancer or team leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd, opts, func(g *game) error {
				entries := g.sess.Leaderboard(top)
				highlight := session.PlayerID
				if teams {
					entries = g.sess.TeamLeaderboard()
					if top > 0 {
						entries = rating.Top(entries, top)
					}
					highlight = g.sess.Player().TeamID
				}
				rows := make([][]string, 0, len(entries))
				for i, e := range entries {
					name := e.Name
					if e.ID == highlight {
						name = goodStyle.Render(name)
					}
					rows = append(rows, []string{
						strconv.Itoa(i + 1), e.ID, name,
						fmt.Sprintf("%.0f", e.Stats.AvgSkill()),
						strconv.Itoa(e.Stats.Popularity),
						strconv.Itoa(e.Stats.Reputation),
						string(rating.LevelOf(e.Stats.AvgSkill())),
						fmt.Sprintf("%.3f", e.Score),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), table([]string{"#", "ID", "NAME", "SKILL", "POP", "REP", "LEVEL", "SCORE"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "entries to show (0 for all)")
	cmd.Flags().BoolVar(&teams, "teams", false, "rank teams instead of dancers")
	return cmd
}

func newJournalCmd(opts *rootOptions) *cobra.Command {
	var (
		typ   string
		limit int
		audit bool
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the latest journal events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := "events"
			if audit {
				prefix = "audit"
			}
			var evs []protocol.Event
			err := journal.ReadJournal(filepath.Join(opts.saveDir, prefix), prefix, func(ev protocol.Event) bool {
				if typ == "" || ev.Type() == typ {
					evs = append(evs, ev)
					if limit > 0 && len(evs) > limit {
						evs = evs[1:]
					}
				}
				return true
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, ev := range evs {
				fmt.Fprintf(out, "%s %s %v\n", mutedStyle.Render(fmt.Sprintf("day %v", ev["day"])), keyStyle.Render(ev.Type()), eventFields(ev))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "only events of this type")
	cmd.Flags().IntVar(&limit, "limit", 50, "latest events to show (0 for all)")
	cmd.Flags().BoolVar(&audit, "audit", false, "read the audit journal (refused commands)")
	return cmd
}

func eventFields(ev protocol.Event) map[string]any {
	out := make(map[string]any, len(ev))
	for k, v := range ev {
		if k != "type" && k != "day" {
			out[k] = v
		}
	}
	return out
}

func openIndex(cmd *cobra.Command, opts *rootOptions) (*indexdb.Index, error) {
	cfg := indexdb.ConfigFromEnv(indexdb.DefaultPath(opts.saveDir))
	return indexdb.Open(cmd.Context(), cfg, indexdb.Options{Logger: opts.logger(cmd.ErrOrStderr())})
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Query the career index (sqlite, or postgres with DB_DIALECT=postgres)",
	}
	withIndex := func(fn func(cmd *cobra.Command, idx *indexdb.Index, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			idx, err := openIndex(cmd, opts)
			if err != nil {
				return err
			}
			defer idx.Close()
			return fn(cmd, idx, args)
		}
	}

	var limit int
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Finished projects, latest first",
		Args:  cobra.NoArgs,
		RunE: withIndex(func(cmd *cobra.Command, idx *indexdb.Index, args []string) error {
			rows, err := idx.RecentProjects(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := make([][]string, 0, len(rows))
			for _, r := range rows {
				out = append(out, []string{
					r.ProjectID, r.Name, r.Style, statusText(projects.Status(r.Status)),
					strconv.Itoa(r.CompletedDay),
					fmt.Sprintf("%d/%d", r.Trainings, r.TrainingNeeded),
					strconv.Itoa(r.CostumeMatch),
					fmt.Sprintf("%d/%d", r.Likes, r.Dislikes),
					fmt.Sprintf("%+d", r.PopularityChange),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), table([]string{"ID", "NAME", "STYLE", "STATUS", "DAY", "TRAINED", "MATCH", "LIKES", "POP"}, out))
			return nil
		}),
	}
	projectsCmd.Flags().IntVar(&limit, "limit", 20, "rows to show (0 for all)")

	cmd.AddCommand(
		projectsCmd,
		&cobra.Command{
			Use:   "career",
			Short: "Career totals",
			Args:  cobra.NoArgs,
			RunE: withIndex(func(cmd *cobra.Command, idx *indexdb.Index, args []string) error {
				c, err := idx.Career(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, labelValue("Completed", goodStyle.Render(strconv.Itoa(c.Completed))))
				fmt.Fprintln(out, labelValue("Failed", badStyle.Render(strconv.Itoa(c.Failed))))
				fmt.Fprintln(out, labelValue("Cancelled", c.Cancelled))
				fmt.Fprintln(out, labelValue("Popularity gained", c.PopularityGain))
				fmt.Fprintln(out, labelValue("Reputation change", c.ReputationDelta))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "events [target]",
			Short: "Event counts, or every event about one project, NPC or team",
			Args:  cobra.MaximumNArgs(1),
			RunE: withIndex(func(cmd *cobra.Command, idx *indexdb.Index, args []string) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					evs, err := idx.EventsFor(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					for _, raw := range evs {
						fmt.Fprintln(out, raw)
					}
					return nil
				}
				counts, err := idx.EventCounts(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(counts))
				for _, typ := range sortedKeys(counts) {
					rows = append(rows, []string{typ, strconv.Itoa(counts[typ])})
				}
				fmt.Fprintln(out, table([]string{"TYPE", "COUNT"}, rows))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "saves",
			Short: "Saves written so far",
			Args:  cobra.NoArgs,
			RunE: withIndex(func(cmd *cobra.Command, idx *indexdb.Index, args []string) error {
				saves, err := idx.Saves(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(saves))
				for _, s := range saves {
					rows = append(rows, []string{
						s.SaveID, s.SaveName, strconv.Itoa(s.Day), strconv.Itoa(s.Money),
						strconv.Itoa(s.Popularity), strconv.Itoa(s.Reputation), s.SavedAt,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), table([]string{"ID", "SLOT", "DAY", "MONEY", "POP", "REP", "SAVED"}, rows))
				return nil
			}),
		},
	)
	return cmd
}

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List the year-end archives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			years, err := archive.Years(opts.saveDir)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(years))
			for _, y := range years {
				m, err := archive.ReadYearMeta(opts.saveDir, y)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					strconv.Itoa(m.Year + 1), strconv.Itoa(m.Day), strconv.Itoa(m.Money),
					strconv.Itoa(m.Popularity), strconv.Itoa(m.Reputation), strconv.Itoa(m.Completed), m.CreatedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), table([]string{"YEAR", "DAY", "MONEY", "POP", "REP", "DONE", "ARCHIVED"}, rows))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "restore <year>",
		Short: "Roll the slot back to the start of the year after <year>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := atoi(args[0], "year")
			if err != nil {
				return err
			}
			m, err := archive.ReadYearMeta(opts.saveDir, year-1)
			if err != nil {
				return fmt.Errorf("year %d is not archived: %w", year, err)
			}
			doc, err := save.Read(archive.SavePath(opts.saveDir, m))
			if err != nil {
				return err
			}
			if err := save.Write(opts.savePath(), doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to %s\n", opts.savePath(), dateText(doc.GameTime))
			return nil
		},
	})
	return cmd
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
