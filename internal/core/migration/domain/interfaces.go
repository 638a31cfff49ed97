package domain

import "context"

// HistoryStore is the oracle's private migration history, keyed by
// definition name.
type HistoryStore interface {
	// Get returns a definition or ErrDefinitionNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put stores a definition, replacing any previous one.
	Put(ctx context.Context, name string, definition []byte) error

	// List returns every stored name in sorted order.
	List(ctx context.Context) ([]string, error)

	// Reset removes every stored definition.
	Reset(ctx context.Context) error
}

// Snapshot is the raw output of one capture run.
type Snapshot struct {
	Schema     []byte
	Views      []byte
	Connection []byte
}

// Capture extracts the declared schema from the application.
type Capture interface {
	// Capture runs the application entry point and returns its schema,
	// views and connection descriptor.
	Capture(ctx context.Context, entryPath string) (*Snapshot, error)
}

// Oracle detects schema changes and renders them as SQL.
type Oracle interface {
	// Prepare installs the rendered models and the connection settings.
	Prepare(ctx context.Context, models string, conn *Connection) error

	// History returns the oracle's private history store.
	History() HistoryStore

	// Detect writes new definitions into the history. In ModeCheck it
	// writes nothing and returns kerrors.ErrPendingChanges when something
	// is pending.
	Detect(ctx context.Context, mode Mode) error

	// RenderForward renders the SQL applying a definition.
	RenderForward(ctx context.Context, name string) (string, error)

	// RenderBackward renders the SQL reverting a definition.
	RenderBackward(ctx context.Context, name string) (string, error)
}

// RuntimeCommand is an operation of the execution runtime.
type RuntimeCommand string

const (
	RuntimeLatest         RuntimeCommand = "latest"
	RuntimeUp             RuntimeCommand = "up"
	RuntimeDown           RuntimeCommand = "down"
	RuntimeCurrentVersion RuntimeCommand = "currentVersion"
	RuntimeList           RuntimeCommand = "list"
	RuntimeUnlock         RuntimeCommand = "forceFreeMigrationsLock"
)

// Runtime replays migration files against the database.
type Runtime interface {
	// Run executes one runtime command and returns its output.
	Run(ctx context.Context, cmd RuntimeCommand, entryPath string) ([]byte, error)
}
