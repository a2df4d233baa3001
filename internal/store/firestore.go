package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/crypto/blake2b"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
)

// FirestoreStore keeps the serialized snapshot in a single Firestore document.
// It also implements Mirror, storing each published path as a document in the
// same collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	document   string
	// name is the snapshot file name used in commit messages.
	name string
}

// DefaultSnapshotName is the file name the snapshot is known by in commit
// messages.
const DefaultSnapshotName = "teams.json"

// snapshotDoc is the stored shape of a snapshot document.
type snapshotDoc struct {
	Content   string    `firestore:"content"`
	Message   string    `firestore:"message"`
	Digest    string    `firestore:"digest"`
	Revision  int64     `firestore:"revision"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewFirestoreStore connects to projectID. An empty databaseID selects the
// default database; credentialsFile is optional.
func NewFirestoreStore(ctx context.Context, projectID, databaseID, credentialsFile, collection, document string) (*FirestoreStore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection, document: document, name: DefaultSnapshotName}, nil
}

// SetSnapshotName changes the file name used in the messages recorded with
// the snapshot document.
func (f *FirestoreStore) SetSnapshotName(name string) {
	if name != "" {
		f.name = name
	}
}

func (f *FirestoreStore) initMessage() string {
	return "Initialize " + f.name
}

func (f *FirestoreStore) updateMessage() string {
	return "Update " + f.name
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

func (f *FirestoreStore) ref(id string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(id)
}

func (f *FirestoreStore) docPath() string {
	return f.collection + "/" + f.document
}

func (f *FirestoreStore) Bootstrap(ctx context.Context) (bool, error) {
	content, err := EncodeSnapshot(models.NewSnapshot())
	if err != nil {
		return false, &IOError{Op: "writing snapshot", Path: f.docPath(), Err: err}
	}
	doc := newSnapshotDoc(content, f.initMessage(), 1)
	if _, err := f.ref(f.document).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, &IOError{Op: "writing snapshot", Path: f.docPath(), Err: err}
	}
	return true, nil
}

func (f *FirestoreStore) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	ds, err := f.ref(f.document).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.NewSnapshot(), nil
		}
		return nil, &IOError{Op: "reading snapshot", Path: f.docPath(), Err: err}
	}

	var doc snapshotDoc
	if err := ds.DataTo(&doc); err != nil {
		return nil, &IOError{Op: "parsing snapshot", Path: f.docPath(), Err: err}
	}
	if doc.Digest != "" && doc.Digest != Digest([]byte(doc.Content)) {
		return nil, &IOError{Op: "parsing snapshot", Path: f.docPath(), Err: fmt.Errorf("content digest mismatch")}
	}
	snap, err := DecodeSnapshot([]byte(doc.Content))
	if err != nil {
		return nil, &IOError{Op: "parsing snapshot", Path: f.docPath(), Err: err}
	}
	return snap, nil
}

func (f *FirestoreStore) SaveSnapshot(ctx context.Context, snap models.Snapshot) error {
	content, err := EncodeSnapshot(snap)
	if err != nil {
		return &IOError{Op: "writing snapshot", Path: f.docPath(), Err: err}
	}
	if err := f.Publish(ctx, f.document, content, f.updateMessage()); err != nil {
		return &IOError{Op: "writing snapshot", Path: f.docPath(), Err: err}
	}
	return nil
}

// Publish upserts the document named path, bumping its revision when it already exists.
func (f *FirestoreStore) Publish(ctx context.Context, path string, content []byte, message string) error {
	ref := f.ref(path)
	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ds, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			return tx.Create(ref, newSnapshotDoc(content, message, 1))
		}

		var prev snapshotDoc
		if err := ds.DataTo(&prev); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		return tx.Set(ref, newSnapshotDoc(content, message, prev.Revision+1))
	})
}

func newSnapshotDoc(content []byte, message string, revision int64) snapshotDoc {
	return snapshotDoc{
		Content:   string(content),
		Message:   message,
		Digest:    Digest(content),
		Revision:  revision,
		UpdatedAt: time.Now().UTC(),
	}
}

// Digest returns the hex BLAKE2b-256 of content.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}
