package store

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

// JournalEntry is a rate revision and the job rate and live status it was made against.
type JournalEntry struct {
	Rate   *big.Int           `json:"rate"`
	Live   bool               `json:"live"`
	Revise *models.RateRevise `json:"revise"`
}

func (e JournalEntry) job(id string) models.Job {
	return models.Job{ID: id, Rate: e.Rate, Live: e.Live, ReviseRate: e.Revise}
}

// Journal keeps the rate revisions of the owner jobs between processes. The indexer
// does not know about them, so without it a revision started by one command could not
// be finalized by the next.
type Journal interface {
	Load() (map[string]JournalEntry, error)
	Save(id string, entry JournalEntry) error
	Delete(id string) error
}

// DiskJournal is a Journal in a leveldb directory, keyed by job id.
type DiskJournal struct {
	db *leveldb.DB
}

func OpenOrInitJournal(p string) (*DiskJournal, error) {
	if _, err := os.Stat(p); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(p, 0700); err != nil {
			return nil, err
		}
	}

	db, err := leveldb.OpenFile(p, nil)
	if err != nil {
		return nil, err
	}
	return &DiskJournal{db}, nil
}

func (dj *DiskJournal) Close() error {
	return dj.db.Close()
}

func (dj *DiskJournal) Load() (map[string]JournalEntry, error) {
	entries := make(map[string]JournalEntry)
	iter := dj.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		var entry JournalEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("decoding revision of job '%s': %w", iter.Key(), err)
		}
		entries[string(iter.Key())] = entry
	}
	return entries, iter.Error()
}

func (dj *DiskJournal) Save(id string, entry JournalEntry) error {
	bytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := dj.db.Put([]byte(id), bytes, nil); err != nil {
		return fmt.Errorf("writing revision of job '%s': %w", id, err)
	}
	return nil
}

func (dj *DiskJournal) Delete(id string) error {
	if err := dj.db.Delete([]byte(id), nil); err != nil {
		return fmt.Errorf("deleting revision of job '%s': %w", id, err)
	}
	return nil
}

// RestoreRevisions puts journaled revisions back on the jobs that have none, as long
// as the job rate and live status still match the entry.
func RestoreRevisions(entries map[string]JournalEntry) Reducer {
	return func(state models.State) models.State {
		var jobs []models.Job
		for i, job := range state.JobsData {
			entry, ok := entries[job.ID]
			if !ok || job.ReviseRate != nil || !SameRevisionBase(entry.job(job.ID), job) {
				continue
			}
			if jobs == nil {
				jobs = make([]models.Job, len(state.JobsData))
				copy(jobs, state.JobsData)
			}
			restored := job.Clone()
			restored.ReviseRate = entry.Revise.Clone()
			jobs[i] = restored
		}
		if jobs != nil {
			state.JobsData = jobs
		}
		return state
	}
}
