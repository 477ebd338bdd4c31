package ledger

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names.
const (
	methodCount        = "getNotesCount"
	methodGetNote      = "getNote"
	methodUpload       = "uploadNote"
	methodLike         = "likeNote"
	methodDislike      = "dislikeNote"
	methodRewardAmount = "rewardAmount"
)

//go:embed notes_abi.json
var notesABIJSON string

var (
	parsedOnce sync.Once
	parsedABI  abi.ABI
	parsedErr  error
)

// NotesABI returns the parsed notes contract ABI.
func NotesABI() (abi.ABI, error) {
	parsedOnce.Do(func() {
		parsedABI, parsedErr = abi.JSON(strings.NewReader(notesABIJSON))
	})
	return parsedABI, parsedErr
}
