package pos_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/pos"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func seed(i int) digest.Digest {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(i))
	return digest.Hash(b[:])
}

// =============================================================================

func Test_SelectErrors(t *testing.T) {
	tt := []struct {
		name   string
		stakes pos.StakeTable
		err    error
	}{
		{"empty", pos.StakeTable{}, pos.ErrEmptyStakeTable},
		{"nil", nil, pos.ErrEmptyStakeTable},
		{"negative", pos.StakeTable{"alice": 10, "bob": -1}, pos.ErrInvalidWeight},
		{"all-zero", pos.StakeTable{"alice": 0, "bob": 0}, pos.ErrInvalidWeight},
		{"overflow", pos.StakeTable{"a": math.MaxInt64, "b": math.MaxInt64, "c": math.MaxInt64}, pos.ErrInvalidWeight},
	}

	t.Log("Given the need to reject unusable stake tables.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen selecting from a %s table.", testID, tst.name)
				{
					id, err := pos.SelectValidator(tst.stakes, seed(1))
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould fail with %v, got %v.", failed, testID, tst.err, err)
					}
					if id != "" {
						t.Fatalf("\t%s\tTest %d:\tShould not select %q.", failed, testID, id)
					}
					t.Logf("\t%s\tTest %d:\tShould fail with %v.", success, testID, tst.err)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_SelectValidator(t *testing.T) {
	t.Log("Given the need to select validators by stake.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen selecting with the same seed.", testID)
		{
			stakes := pos.StakeTable{"alice": 5, "bob": 3, "carol": 2}
			first, err := pos.SelectValidator(stakes, seed(7))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould select a validator: %s", failed, testID, err)
			}

			for range 10 {
				id, _ := pos.SelectValidator(stakes.Copy(), seed(7))
				if id != first {
					t.Fatalf("\t%s\tTest %d:\tShould be deterministic: %s != %s", failed, testID, id, first)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be deterministic.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen walking the cumulative intervals.", testID)
		{
			stakes := pos.StakeTable{"bob": 3, "alice": 2}

			// Points 0 and 1 belong to alice, 2 through 4 to bob.
			exp := []string{"alice", "alice", "bob", "bob", "bob", "alice"}
			for point, want := range exp {
				var s digest.Digest
				s[digest.Size-1] = byte(point)

				got, err := pos.SelectValidator(stakes, s)
				if err != nil || got != want {
					t.Fatalf("\t%s\tTest %d:\tShould select %s for point %d, got %s %v.", failed, testID, want, point, got, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould select by half open interval.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a validator has no stake.", testID)
		{
			stakes := pos.StakeTable{"alice": 0, "bob": 1}
			for i := range 100 {
				if id, _ := pos.SelectValidator(stakes, seed(i)); id != "bob" {
					t.Fatalf("\t%s\tTest %d:\tShould never select a zero weight validator.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould never select a zero weight validator.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen drawing many seeds from a 90/10 table.", testID)
		{
			stakes := pos.StakeTable{"A": 90, "B": 10}

			const draws = 10_000
			var a int
			for i := range draws {
				id, err := pos.SelectValidator(stakes, seed(i))
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould select a validator: %s", failed, testID, err)
				}
				if id == "A" {
					a++
				}
			}

			ratio := float64(a) / draws
			if ratio < 0.87 || ratio > 0.93 {
				t.Fatalf("\t%s\tTest %d:\tShould select A about 90%% of the time, got %.3f.", failed, testID, ratio)
			}
			t.Logf("\t%s\tTest %d:\tShould select A about 90%% of the time: %.3f.", success, testID, ratio)
		}
	}
}

func Test_Verify(t *testing.T) {
	stakes := pos.StakeTable{"alice": 5, "bob": 3, "carol": 2}

	t.Log("Given the need to verify the validator recorded in a header.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen producing a genesis header.", testID)
		{
			blk := database.NewBlock(database.PoS, database.NoPrev, 1, []database.Tx{database.Tx("Tx1")})
			h, err := pos.Produce(blk.Header, stakes)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould produce the header: %s", failed, testID, err)
			}

			exp, _ := pos.SelectValidator(stakes, digest.Zero)
			if h.Validator != exp || h.Kind != database.PoS {
				t.Fatalf("\t%s\tTest %d:\tShould seed genesis with the zero digest.", failed, testID)
			}
			if !pos.Verify(h, stakes, database.NoPrev) {
				t.Fatalf("\t%s\tTest %d:\tShould verify the produced header.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the produced header.", success, testID)

			h.Nonce = 42
			if pos.Verify(h, stakes, database.NoPrev) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a proof of stake header carrying a nonce.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a proof of stake header carrying a nonce.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the header names another validator.", testID)
		{
			prev := database.Prev(seed(3))
			blk := database.NewBlock(database.PoS, prev, 2, nil)
			h, _ := pos.Produce(blk.Header, stakes)

			for _, id := range stakes.IDs() {
				if id == h.Validator {
					continue
				}

				bad := h
				bad.Validator = id
				if err := pos.Check(bad, stakes, prev); !errors.Is(err, pos.ErrValidatorMismatch) {
					t.Fatalf("\t%s\tTest %d:\tShould fail with mismatch for %s: %v", failed, testID, id, err)
				}
				if pos.Verify(bad, stakes, prev) {
					t.Fatalf("\t%s\tTest %d:\tShould not verify %s.", failed, testID, id)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould fail with mismatch.", success, testID)

			if pos.Verify(h, pos.StakeTable{}, prev) {
				t.Fatalf("\t%s\tTest %d:\tShould not verify against an empty table.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not verify against an empty table.", success, testID)
		}
	}
}
