package campaign

import "errors"

// Extraction failures are terminal for the current campaign draft: the
// orchestrator destroys the session and surfaces the diagnostic. None
// of them is fatal to the process.
var (
	// ErrChatNotResolvable means the directory could not turn the
	// operator-supplied reference into a chat handle. Malformed numeric
	// references fail with this error as well.
	ErrChatNotResolvable = errors.New("chat not resolvable")

	// ErrNoEligibleMembers means extraction succeeded but every
	// discovered member was filtered out (bots, deleted accounts).
	ErrNoEligibleMembers = errors.New("no eligible members in chat")

	// ErrExtractionTransport covers any other failure while paging
	// through the membership list.
	ErrExtractionTransport = errors.New("membership extraction failed")
)
