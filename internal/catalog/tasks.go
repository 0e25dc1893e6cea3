package catalog

// Platform groups tasks by the network they are performed on.
type Platform string

const (
	PlatformFarcaster Platform = "farcaster"
	PlatformX         Platform = "x"
	PlatformBase      Platform = "base"
)

// Task is a one-time social or on-chain action that pays a points reward.
type Task struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Platform Platform `json:"platform"`
	Reward   float64  `json:"reward"`
}

var tasks = []Task{
	{ID: "fc_follow", Title: "Follow Signal on Farcaster", Platform: PlatformFarcaster, Reward: 250},
	{ID: "fc_recast", Title: "Recast mining announcement", Platform: PlatformFarcaster, Reward: 250},
	{ID: "fc_share", Title: "Share mini app on Farcaster", Platform: PlatformFarcaster, Reward: 250},
	{ID: "x_login", Title: "Login with X", Platform: PlatformX, Reward: 500},
	{ID: "x_follow", Title: "Follow Signal on X", Platform: PlatformX, Reward: 500},
	{ID: "x_like", Title: "Like pinned post on X", Platform: PlatformX, Reward: 500},
	{ID: "base_connect", Title: "Connect Base wallet", Platform: PlatformBase, Reward: 500},
	{ID: "base_tx", Title: "Execute 1 transaction on Base", Platform: PlatformBase, Reward: 500},
	{ID: "base_swap", Title: "Complete 1 swap on Base", Platform: PlatformBase, Reward: 500},
}

// Tasks returns the task list in display order.
func Tasks() []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// LookupTask returns the task with the given id.
func LookupTask(id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
