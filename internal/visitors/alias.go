package visitors

import (
	"fmt"
	"hash/fnv"
)

var aliasAdjectives = []string{
	"amber", "brisk", "calm", "clever", "curious", "daring", "eager", "gentle",
	"golden", "happy", "humble", "jolly", "keen", "lively", "lucky", "merry",
	"misty", "nimble", "noble", "plucky", "quiet", "rapid", "rosy", "shy",
	"silver", "sleepy", "sunny", "swift", "tidy", "vivid", "witty", "zesty",
}

var aliasAnimals = []string{
	"badger", "beaver", "bison", "crane", "dingo", "dolphin", "eagle", "falcon",
	"ferret", "gecko", "heron", "ibis", "jackal", "koala", "lemur", "lynx",
	"marten", "moose", "newt", "otter", "panda", "puffin", "quail", "raven",
	"seal", "stoat", "tapir", "toucan", "viper", "walrus", "yak", "zebra",
}

// VisitorAlias returns a stable, human-readable stand-in for a visitor id so
// logs can correlate events without exposing the id itself.
func VisitorAlias(visitorID string) string {
	if visitorID == "" {
		return "anonymous"
	}

	h := fnv.New64a()
	h.Write([]byte(visitorID))
	sum := h.Sum64()

	adjective := aliasAdjectives[sum%uint64(len(aliasAdjectives))]
	animal := aliasAnimals[(sum>>8)%uint64(len(aliasAnimals))]
	return fmt.Sprintf("%s-%s-%04x", adjective, animal, (sum>>16)&0xffff)
}
