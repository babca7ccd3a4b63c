package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"coverdance.app/internal/sim/clock"
	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/session"
)

func dateText(c clock.Clock) string {
	return fmt.Sprintf("year %d, month %d, day %d", c.Year+1, c.Month+1, c.Day+1)
}

func atoi(arg, what string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", what, arg)
	}
	return n, nil
}

func newNewCmd(opts *rootOptions) *cobra.Command {
	var (
		seed  int64
		name  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new career in the save slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.savePath()); err == nil && !force {
				return fmt.Errorf("slot %q already has a save; pass --force to overwrite", opts.slot)
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			g, err := openGame(cmd.Context(), opts, opts.logger(cmd.ErrOrStderr()), &newGame{seed: seed, name: name})
			if err != nil {
				return err
			}
			defer g.close()
			if err := g.save(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, heading("New career"))
			fmt.Fprintln(out, labelValue("Slot", opts.savePath()))
			fmt.Fprintln(out, labelValue("Seed", seed))
			fmt.Fprintln(out, labelValue("Money", g.sess.Player().Money))
			fmt.Fprintln(out, labelValue("Offers", len(g.sess.AvailableProjects())))
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	cmd.Flags().StringVar(&name, "name", "Rookie", "player name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing save")
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the player and the projects in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd, opts, func(g *game) error {
				printStatus(cmd.OutOrStdout(), g.sess)
				return nil
			})
		},
	}
}

func printStatus(out io.Writer, s *session.Session) {
	p := s.Player()
	lines := []string{
		heading(p.Name),
		labelValue("Date", dateText(s.Now())),
		labelValue("Money", fmt.Sprintf("%d (held for costumes %d)", p.Money, s.EscrowTotal())),
		labelValue("Skill", fmt.Sprintf("F %.0f / M %.0f", p.FSkill, p.MSkill)),
		labelValue("Popularity", p.Popularity),
		labelValue("Reputation", p.Reputation),
		labelValue("Tired", p.Tired),
		labelValue("Rating", fmt.Sprintf("%.3f", s.PlayerRating())),
	}
	if p.TeamID != "" {
		lines = append(lines, labelValue("Team", p.TeamID))
	}
	fmt.Fprintln(out, panelStyle.Render(strings.Join(lines, "\n")))

	active := s.ActiveProjects()
	if len(active) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No projects in progress."))
		return
	}
	rows := make([][]string, 0, len(active))
	for _, pr := range active {
		flags := []string{}
		if pr.NeedsFunding {
			flags = append(flags, warnStyle.Render("needs funding"))
		}
		if pr.CostumeRequested && !pr.CostumeApproved {
			flags = append(flags, warnStyle.Render("costume"))
		}
		if pr.DeadlineExtended {
			flags = append(flags, mutedStyle.Render("extended"))
		}
		rows = append(rows, []string{
			pr.ID,
			pr.Name,
			pr.RequiredSkill.String(),
			fmt.Sprintf("%d/%d", pr.TrainingsCompleted, pr.TrainingNeeded),
			fmt.Sprintf("%d+%d", pr.BaseTraining, pr.ExtraTraining),
			strconv.Itoa(pr.DaysActive),
			strconv.Itoa(s.ReservedForProject(pr.ID)),
			strings.Join(flags, " "),
		})
	}
	fmt.Fprintln(out, table([]string{"ID", "NAME", "STYLE", "TRAINED", "WEEKLY", "DAYS", "HELD", ""}, rows))
}

func newOffersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "offers",
		Short: "List the offer board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd, opts, func(g *game) error {
				board := g.sess.AvailableProjects()
				rows := make([][]string, 0, len(board))
				for _, p := range board {
					rows = append(rows, []string{
						p.ID,
						p.Name,
						p.RequiredSkill.String(),
						fmt.Sprintf("%dw x%d", p.DurationWeeks, p.TrainingsPerWeek),
						strconv.Itoa(p.TrainingNeeded),
						strconv.Itoa(p.TrainingCost),
						strconv.Itoa(p.CostumeCost),
						strconv.Itoa(p.MinReputation),
						p.LeaderID,
						strconv.Itoa(g.sess.ReservedForProject(p.ID)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), table(
					[]string{"ID", "NAME", "STYLE", "PLAN", "NEEDED", "COST", "COSTUME", "MIN REP", "LEADER", "HELD"}, rows))
				return nil
			})
		},
	}
}

func newAcceptCmd(opts *rootOptions) *cobra.Command {
	var base, saved int
	cmd := &cobra.Command{
		Use:   "accept <project-id>",
		Short: "Accept an offer from the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				if !cmd.Flags().Changed("base") {
					if p, ok := g.sess.Project(args[0]); ok {
						base = min(p.TrainingsPerWeek, g.sess.Tuning().Projects.MaxBaseTraining)
					}
				}
				if !g.sess.AcceptProject(args[0], base, saved) {
					return g.refused("accept")
				}
				fmt.Fprintln(cmd.OutOrStdout(), goodStyle.Render("Accepted "+args[0]))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&base, "base", 0, "base trainings per week (default: the offer's plan)")
	cmd.Flags().IntVar(&saved, "costume-saved", 0, "money to set aside for the costume now")
	return cmd
}

func newAbandonCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <project-id>",
		Short: "Cancel a project in progress and refund its costume fund",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				refund, ok := g.sess.AbandonProject(args[0])
				if !ok {
					return g.refused("abandon")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Abandoned %s, refunded %d\n", args[0], refund)
				return nil
			})
		},
	}
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var base, extra int
	cmd := &cobra.Command{
		Use:   "plan <project-id>",
		Short: "Change the weekly training plan of a project in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch projects.Patch
			if cmd.Flags().Changed("base") {
				patch.BaseTraining = &base
			}
			if cmd.Flags().Changed("extra") {
				patch.ExtraTraining = &extra
			}
			if patch.BaseTraining == nil && patch.ExtraTraining == nil {
				return errors.New("nothing to change: pass --base or --extra")
			}
			return play(cmd, opts, func(g *game) error {
				if !g.sess.UpdateActiveProject(args[0], patch) {
					return g.refused("plan")
				}
				fmt.Fprintln(cmd.OutOrStdout(), goodStyle.Render("Plan updated"))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&base, "base", 0, "base trainings per week")
	cmd.Flags().IntVar(&extra, "extra", 0, "extra trainings per week")
	return cmd
}

func newFundCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <project-id>",
		Short: "Pay for the training a project is waiting on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				if !g.sess.FundProjectTraining(args[0]) {
					return g.refused("fund")
				}
				fmt.Fprintln(cmd.OutOrStdout(), goodStyle.Render("Training funded"))
				return nil
			})
		},
	}
}

func newCostumeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "costume",
		Short: "Manage costume money and selections",
	}
	amountCmd := func(use, short string, fn func(g *game, id string, amount int, out io.Writer) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <project-id> <amount>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := atoi(args[1], "amount")
				if err != nil {
					return err
				}
				return play(cmd, opts, func(g *game) error {
					return fn(g, args[0], amount, cmd.OutOrStdout())
				})
			},
		}
	}
	cmd.AddCommand(
		amountCmd("reserve", "Set money aside for a project's costume", func(g *game, id string, amount int, out io.Writer) error {
			if !g.sess.ReserveCostumeForProject(id, amount) {
				return g.refused("reserve")
			}
			fmt.Fprintf(out, "Held for %s: %d\n", id, g.sess.ReservedForProject(id))
			return nil
		}),
		amountCmd("commit", "Lock reserved money into the costume fund", func(g *game, id string, amount int, out io.Writer) error {
			n := g.sess.CommitReservedCostume(id, amount)
			fmt.Fprintf(out, "Committed %d\n", n)
			return nil
		}),
		amountCmd("release", "Return uncommitted costume money", func(g *game, id string, amount int, out io.Writer) error {
			n := g.sess.ReleaseReservedCostume(id, amount)
			fmt.Fprintf(out, "Released %d\n", n)
			return nil
		}),
		&cobra.Command{
			Use:   "submit <project-id> <item-id>...",
			Short: "Show the leader a costume selection",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return play(cmd, opts, func(g *game) error {
					res, ok := g.sess.SubmitCostumeSelection(args[0], args[1:])
					if !ok {
						return g.refused("costume")
					}
					out := cmd.OutOrStdout()
					fmt.Fprintln(out, labelValue("Match", fmt.Sprintf("%d%%", res.Match)))
					fmt.Fprintln(out, labelValue("Verdict", string(res.Verdict)))
					if res.Opinion != "" {
						fmt.Fprintln(out, mutedStyle.Render(res.Opinion))
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func newAdvanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "advance [days]",
		Short: "Let time pass",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days := 1
			if len(args) == 1 {
				n, err := atoi(args[0], "day count")
				if err != nil {
					return err
				}
				if n <= 0 {
					return errors.New("day count must be positive")
				}
				days = n
			}
			return play(cmd, opts, func(g *game) error {
				printReport(cmd.OutOrStdout(), g.sess, g.sess.AdvanceDays(days))
				return nil
			})
		},
	}
}

func newRestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rest",
		Short: "Take days off and clear tiredness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				printReport(cmd.OutOrStdout(), g.sess, g.sess.Rest())
				return nil
			})
		},
	}
}

func printReport(out io.Writer, s *session.Session, rep session.AdvanceReport) {
	fmt.Fprintln(out, heading(dateText(s.Now())))
	fmt.Fprintln(out, labelValue("Days", rep.Days))
	fmt.Fprintln(out, labelValue("Trainings paid", fmt.Sprintf("%d (%d spent)", rep.TrainingsPaid, rep.MoneySpent)))
	list := func(label string, ids []string, style func(...string) string) {
		if len(ids) > 0 {
			fmt.Fprintln(out, labelValue(label, style(strings.Join(ids, ", "))))
		}
	}
	list("Completed", rep.Completed, goodStyle.Render)
	list("Failed", rep.Failed, badStyle.Render)
	list("Needs funding", rep.NeedsFunding, warnStyle.Render)
	list("Costume requested", rep.CostumeRequested, warnStyle.Render)
	list("Deadline extended", rep.DeadlineExtended, mutedStyle.Render)
	for _, r := range rep.Reminders {
		fmt.Fprintf(out, "%s birthday in %d days (%s)\n", r.NPCID, r.DaysAhead, dateText(r.Birthday))
	}
	for _, a := range rep.CollabAnswers {
		answer := badStyle.Render("declined")
		if a.Accepted {
			answer = goodStyle.Render("accepted")
		}
		fmt.Fprintf(out, "%s %s your collab\n", a.NPCID, answer)
	}
	if rep.OffersAdded > 0 {
		fmt.Fprintln(out, labelValue("New offers", rep.OffersAdded))
	}
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Replace the offer board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				fmt.Fprintln(cmd.OutOrStdout(), labelValue("Offers", g.sess.RefreshOffers()))
				return nil
			})
		},
	}
}

func newTrainCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "train <F_skill|M_skill>",
		Short: "Book a paid choreographer session in one style",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			style, ok := projects.ParseStyle(args[0])
			if !ok {
				return fmt.Errorf("unknown style %q", args[0])
			}
			return play(cmd, opts, func(g *game) error {
				if !g.sess.RecordStyleTraining(style) {
					return g.refused("train")
				}
				p := g.sess.Player()
				fmt.Fprintln(cmd.OutOrStdout(), labelValue("Skill", fmt.Sprintf("F %.0f / M %.0f", p.FSkill, p.MSkill)))
				return nil
			})
		},
	}
}

func newBuyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item-id>",
		Short: "Buy a piece of clothing for the wardrobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				if !g.sess.BuyClothes(args[0]) {
					return g.refused("buy")
				}
				fmt.Fprintln(cmd.OutOrStdout(), labelValue("Money", g.sess.Player().Money))
				return nil
			})
		},
	}
}
