package relay

import (
	"hash/fnv"
	"strings"
)

var nameAdjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "blue", "red", "green", "bright", "gentle",
	"brave", "calm", "swift", "silent", "noisy", "bouncy", "fuzzy", "plucky", "merry", "peppy",
}

var nameAnimals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"chick", "duckling", "fawn", "foal", "lamb", "calf", "porcupine", "raccoon", "skunk", "mole",
	"mouse", "rat", "ferret", "weasel", "beaver", "seahorse", "starfish", "dolphin", "whale", "narwhal",
	"penguin", "flamingo", "pelican", "swallow", "sparrow", "robin", "toucan", "parrot", "canary", "cockatoo",
}

// DisplayName returns the human-friendly name for a peer id, e.g. "Cozy Otter".
// The same id always yields the same name.
func DisplayName(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	sum := h.Sum64()

	adj := nameAdjectives[sum%uint64(len(nameAdjectives))]
	animal := nameAnimals[(sum/uint64(len(nameAdjectives)))%uint64(len(nameAnimals))]
	return capitalize(adj) + " " + capitalize(animal)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
