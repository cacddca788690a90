package sequence

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence", fx.Provide(NewNode))

// NewNode builds the process-wide snowflake node. NODE_ID distinguishes
// replicas; unset means node 1, which is fine for single-instance deploys.
func NewNode() (*snowflake.Node, error) {
	nodeID := int64(1)
	if v := os.Getenv("NODE_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			nodeID = n
		}
	}
	return snowflake.NewNode(nodeID)
}
