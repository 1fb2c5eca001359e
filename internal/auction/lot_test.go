package auction

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
)

func validRaw() *RawLot {
	return &RawLot{
		ID:            "3",
		Producer:      "0x00ABC",
		Breed:         "angus",
		InitialWeight: "450",
		HeadCount:     "120",
		MetadataURI:   "ipfs://bafyexample",
		StartTime:     "1000",
		Duration:      "3600",
		Finalized:     false,
		BestBid:       "0",
		BestBidder:    "",
	}
}

func TestParseLot(t *testing.T) {
	lot, err := ParseLot(validRaw())
	check.Nil(t, err)
	check.Equal(t, uint64(3), lot.ID)
	check.Equal(t, "0xabc", lot.Producer.Key())
	check.Equal(t, "angus", lot.Breed)
	check.Equal(t, uint64(450), lot.InitialWeight)
	check.Equal(t, uint64(120), lot.HeadCount)
	check.Equal(t, uint64(1000), lot.StartTime)
	check.Equal(t, uint64(3600), lot.Duration)
	check.Equal(t, uint64(4600), lot.End())
	check.False(t, lot.Finalized)
	check.Equal(t, 0, lot.BestBid.Sign())
	check.True(t, lot.BestBidder.IsZero())
}

func TestParseLotFinalizedWinner(t *testing.T) {
	raw := validRaw()
	raw.Finalized = true
	raw.BestBid = "123456"
	raw.BestBidder = "0xDEF"

	lot, err := ParseLot(raw)
	check.Nil(t, err)
	check.True(t, lot.Finalized)
	check.Equal(t, "123456", lot.BestBid.String())
	check.Equal(t, "0xdef", lot.BestBidder.Key())
}

func TestParseLotRejectsMalformedFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawLot)
		field  string
	}{
		{"empty id", func(r *RawLot) { r.ID = "" }, "id"},
		{"zero id", func(r *RawLot) { r.ID = "0" }, "id"},
		{"non-numeric id", func(r *RawLot) { r.ID = "abc" }, "id"},
		{"bad producer", func(r *RawLot) { r.Producer = "not-an-address" }, "producer"},
		{"bad weight", func(r *RawLot) { r.InitialWeight = "-1" }, "initial_weight"},
		{"bad start", func(r *RawLot) { r.StartTime = "soon" }, "start_time"},
		{"bad duration", func(r *RawLot) { r.Duration = "" }, "duration"},
		{"bad best bid", func(r *RawLot) { r.BestBid = "12x" }, "best_bid"},
		{"bad best bidder", func(r *RawLot) { r.BestBidder = "zz" }, "best_bidder"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := validRaw()
			tc.mutate(raw)
			_, err := ParseLot(raw)
			var malformed *MalformedLotError
			check.True(t, errors.As(err, &malformed))
			check.Equal(t, tc.field, malformed.Field)
		})
	}
}

func TestIdentityNormalization(t *testing.T) {
	a := MustIdentity("0x00ABC")
	b := MustIdentity("0xabc")
	c := MustIdentity("2748") // 0xabc in decimal

	check.Equal(t, "0xabc", a.Key())
	check.True(t, a.Equal(b))
	check.True(t, a.Equal(c))
	check.False(t, a.Equal(MustIdentity("0xabd")))
}

func TestParseIdentityRejectsInvalid(t *testing.T) {
	for _, s := range []string{"", "  ", "0x", "xyz", "-5"} {
		_, err := ParseIdentity(s)
		check.NotNil(t, err)
	}
}

func TestPrivilegedPolicy(t *testing.T) {
	owner := MustIdentity("0x0626bb9241ba6334")
	policy := NewPrivileged(owner)

	check.True(t, policy.Allows(MustIdentity("0x0626BB9241BA6334")))
	check.False(t, policy.Allows(MustIdentity("0x1")))

	var nilPolicy *Privileged
	check.False(t, nilPolicy.Allows(owner))
}
