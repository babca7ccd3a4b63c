package relations

const (
	MinPoints = 0
	MaxPoints = 1000
)

type Tier string

const (
	TierStranger     Tier = "stranger"
	TierAcquaintance Tier = "acquaintance"
	TierFriend       Tier = "friend"
	TierBestFriend   Tier = "best_friend"
)

type tierRange struct {
	tier     Tier
	min, max int
}

var tiers = []tierRange{
	{TierStranger, 0, 100},
	{TierAcquaintance, 101, 400},
	{TierFriend, 401, 700},
	{TierBestFriend, 701, 1000},
}

func Clamp(points int) int {
	if points < MinPoints {
		return MinPoints
	}
	if points > MaxPoints {
		return MaxPoints
	}
	return points
}

// AddPoints returns points+delta clamped into [0,1000].
func AddPoints(points, delta int) int {
	return Clamp(points + delta)
}

func TierOf(points int) Tier {
	return tiers[tierIndex(points)].tier
}

func tierIndex(points int) int {
	points = Clamp(points)
	for i, r := range tiers {
		if points <= r.max {
			return i
		}
	}
	return len(tiers) - 1
}

type Progress struct {
	Tier            Tier
	NextTier        Tier // empty at the top tier
	PointsInTier    int
	PointsToNext    int
	TotalTierPoints int
}

func ProgressOf(points int) Progress {
	points = Clamp(points)
	i := tierIndex(points)
	r := tiers[i]
	p := Progress{
		Tier:            r.tier,
		PointsInTier:    points - r.min,
		TotalTierPoints: r.max - r.min + 1,
		PointsToNext:    MaxPoints + 1 - points,
	}
	if i+1 < len(tiers) {
		p.NextTier = tiers[i+1].tier
		p.PointsToNext = tiers[i+1].min - points
	}
	return p
}

// Gate is the subset of NPC state that decides whether the account is closed to the player.
type Gate struct {
	Points         int
	HasPrivateChat bool
	EnemyBadge     bool
}

// CanReceiveSocialAction is the single closed-account rule for collabs, chat, greetings and gifts.
func CanReceiveSocialAction(g Gate) bool {
	if !g.HasPrivateChat {
		return true
	}
	return TierOf(g.Points) != TierStranger && !g.EnemyBadge
}
