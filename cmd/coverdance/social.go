package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"coverdance.app/internal/sim/session"
)

func newNPCsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "npcs",
		Short: "List NPCs and where you stand with them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd, opts, func(g *game) error {
				var rows [][]string
				for _, n := range g.sess.NPCs() {
					tier, points, reach := mutedStyle.Render("retired"), "-", ""
					if rv, ok := g.sess.Relationship(n.ID); ok {
						tier = string(rv.Tier)
						points = strconv.Itoa(rv.Points)
						if rv.CanReceive {
							reach = goodStyle.Render("yes")
						} else {
							reach = badStyle.Render("no")
						}
					}
					bday := "-"
					if month, day, ok := session.Birthday(n.BirthDate); ok {
						bday = fmt.Sprintf("m%02d d%02d", month+1, day+1)
					}
					rows = append(rows, []string{
						n.ID, n.Name, n.TeamID, tier, points, reach,
						bday,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), table([]string{"ID", "NAME", "TEAM", "TIER", "POINTS", "REACHABLE", "BIRTHDAY"}, rows))
				return nil
			})
		},
	}

	var off bool
	enemy := &cobra.Command{
		Use:   "enemy <npc-id>",
		Short: "Mark an NPC as an enemy (or clear it with --off)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				if !g.sess.SetEnemyBadge(args[0], !off) {
					return g.refused("enemy")
				}
				return nil
			})
		},
	}
	enemy.Flags().BoolVar(&off, "off", false, "clear the enemy badge")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "retire <npc-id>",
			Short: "Retire an NPC from the scene",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return play(cmd, opts, func(g *game) error {
					if !g.sess.RetireNPC(args[0]) {
						return g.refused("retire")
					}
					return nil
				})
			},
		},
		enemy,
	)
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <npc-id> <message>...",
		Short: "Send an NPC a private message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				if !g.sess.SendChatMessage(args[0], strings.Join(args[1:], " ")) {
					return g.refused("chat")
				}
				return printRelationship(cmd, g, args[0])
			})
		},
	}
}

func newGiftCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gift <npc-id> <gift-id>",
		Short: "Give an NPC a gift",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				if !g.sess.GiveGift(args[0], args[1]) {
					return g.refused("gift")
				}
				return printRelationship(cmd, g, args[0])
			})
		},
	}
}

func newGreetCmd(opts *rootOptions) *cobra.Command {
	var gift string
	cmd := &cobra.Command{
		Use:   "greet <birthday|newyear> <npc-id>",
		Short: "Send a birthday or New Year greeting, optionally with a gift",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, npcID := args[0], args[1]
			if kind != "birthday" && kind != "newyear" {
				return fmt.Errorf("unknown greeting %q", kind)
			}
			return play(cmd, opts, func(g *game) error {
				var ok bool
				if kind == "birthday" {
					ok = g.sess.SendBirthdayGreeting(npcID, gift)
				} else {
					ok = g.sess.SendNewYearGreeting(npcID, gift)
				}
				if !ok {
					return g.refused("greet")
				}
				return printRelationship(cmd, g, npcID)
			})
		},
	}
	cmd.Flags().StringVar(&gift, "gift", "", "gift id to send along")
	return cmd
}

func newCollabCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collab <npc-id>",
		Short: "Propose a collab; the answer arrives within a week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, opts, func(g *game) error {
				if !g.sess.ProposeCollab(args[0]) {
					return g.refused("collab")
				}
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Proposal sent to "+args[0]))
				return nil
			})
		},
	}
}

func printRelationship(cmd *cobra.Command, g *game, npcID string) error {
	rv, ok := g.sess.Relationship(npcID)
	if !ok {
		return nil
	}
	pr := rv.Progress
	line := fmt.Sprintf("%s %d pts", rv.Tier, rv.Points)
	if pr.NextTier != "" {
		line += mutedStyle.Render(fmt.Sprintf(" (%d/%d to %s)", pr.PointsInTier, pr.TotalTierPoints, pr.NextTier))
	}
	fmt.Fprintln(cmd.OutOrStdout(), labelValue(npcID, line))
	return nil
}

func newTeamCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Teams: list, join and team events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd, opts, func(g *game) error {
				var rows [][]string
				for _, t := range g.sess.Teams() {
					sum, _ := g.sess.TeamSummary(t.ID)
					risk := ""
					if g.sess.TeamSkillMismatch(t.ID) {
						risk = warnStyle.Render("skill gap")
					}
					rows = append(rows, []string{
						t.ID, t.Name, t.LeaderID, strconv.Itoa(sum.Members),
						fmt.Sprintf("%.0f", sum.AvgSkill), string(sum.Level), fmt.Sprintf("%.3f", sum.Rating), risk,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), table([]string{"ID", "NAME", "LEADER", "MEMBERS", "SKILL", "LEVEL", "RATING", ""}, rows))
				return nil
			})
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "join <team-id>",
			Short: "Join a team",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return play(cmd, opts, func(g *game) error {
					if g.sess.TeamSkillMismatch(args[0]) {
						fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("This team dances well above your level."))
					}
					if !g.sess.JoinTeam(args[0]) {
						return g.refused("join")
					}
					fmt.Fprintln(cmd.OutOrStdout(), goodStyle.Render("Joined "+args[0]))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "event <team-id> <festival|conflict>",
			Short: "Apply a team festival or conflict",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				kind := session.TeamEventKind(args[1])
				if kind != session.TeamFestival && kind != session.TeamConflict {
					return fmt.Errorf("unknown team event %q", args[1])
				}
				return play(cmd, opts, func(g *game) error {
					if !g.sess.ApplyTeamEvent(args[0], kind) {
						return g.refused("team event")
					}
					return nil
				})
			},
		},
	)
	return cmd
}
