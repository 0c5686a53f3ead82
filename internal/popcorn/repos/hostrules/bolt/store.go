package bolt

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/popcorn/internal/popcorn/common/utils"
	"github.com/haukened/popcorn/internal/popcorn/domain"
	"github.com/haukened/popcorn/internal/popcorn/repos/hostrules"
)

var (
	bucketExact  = []byte("exact")
	bucketSuffix = []byte("suffix")
	bucketMeta   = []byte("meta")

	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
)

// ruleValue is the stored payload for both buckets.
type ruleValue struct {
	Source  string `json:"source"`
	AddedAt int64  `json:"added_at"`
}

// boltStore implements hostrules.Store using bbolt.
// Exact rules are keyed by host, suffix rules by the reversed anchor.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (hostrules.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketExact, bucketSuffix, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// GetFirstMatch returns the exact rule for host if present, otherwise the
// most specific suffix anchor covering host. Anchors stop at the registrable
// domain, so a stored rule on a public suffix never matches.
func (s *boltStore) GetFirstMatch(host string) (domain.HostRule, bool, error) {
	var (
		rule  domain.HostRule
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketExact).Get([]byte(host)); v != nil {
			r, err := decodeRule(host, domain.HostRuleExact, v)
			if err != nil {
				return err
			}
			rule, found = r, true
			return nil
		}
		b := tx.Bucket(bucketSuffix)
		for _, anchor := range utils.ParentHosts(host) {
			if v := b.Get([]byte(reverse(anchor))); v != nil {
				r, err := decodeRule(anchor, domain.HostRuleSuffix, v)
				if err != nil {
					return err
				}
				rule, found = r, true
				return nil
			}
		}
		return nil
	})
	return rule, found, err
}

// RebuildAll replaces every rule and the snapshot metadata in one transaction.
func (s *boltStore) RebuildAll(rules []domain.HostRule, version uint64, updatedUnix int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketExact, bucketSuffix} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
		}
		exact, err := tx.CreateBucket(bucketExact)
		if err != nil {
			return err
		}
		suffix, err := tx.CreateBucket(bucketSuffix)
		if err != nil {
			return err
		}
		for _, r := range rules {
			v, err := json.Marshal(ruleValue{Source: r.Source, AddedAt: r.AddedAt.Unix()})
			if err != nil {
				return err
			}
			switch r.Kind {
			case domain.HostRuleExact:
				err = exact.Put([]byte(r.Name), v)
			case domain.HostRuleSuffix:
				err = suffix.Put([]byte(reverse(r.Name)), v)
			default:
				continue
			}
			if err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		vbuf := make([]byte, 8)
		ubuf := make([]byte, 8)
		binary.BigEndian.PutUint64(vbuf, version)
		binary.BigEndian.PutUint64(ubuf, uint64(updatedUnix))
		if err := meta.Put(keyVersion, vbuf); err != nil {
			return err
		}
		return meta.Put(keyUpdated, ubuf)
	})
}

func (s *boltStore) Stats() hostrules.StoreStats {
	st := hostrules.StoreStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketExact); b != nil {
			st.ExactKeys = uint64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketSuffix); b != nil {
			st.SuffixKeys = uint64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get(keyVersion); len(v) == 8 {
				st.Version = binary.BigEndian.Uint64(v)
			}
			if v := b.Get(keyUpdated); len(v) == 8 {
				st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
			}
		}
		return nil
	})
	return st
}

func decodeRule(name string, kind domain.HostRuleKind, v []byte) (domain.HostRule, error) {
	var rv ruleValue
	if err := json.Unmarshal(v, &rv); err != nil {
		return domain.HostRule{}, err
	}
	return domain.HostRule{Name: name, Kind: kind, Source: rv.Source, AddedAt: time.Unix(rv.AddedAt, 0)}, nil
}

// reverse must agree with the repository's Bloom key reversal.
func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
