package steamid

import "testing"

func TestID2(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{76561197960287930, "STEAM_1:0:11101"},
		{76561197960265729, "STEAM_1:1:0"},
	}
	for _, c := range cases {
		if got := ID2(c.in); got != c.want {
			t.Errorf("ID2(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestID3RoundTripsAccountID(t *testing.T) {
	const accountID = 22164
	synthetic := Synthetic(accountID)
	if got := AccountID(synthetic); got != accountID {
		t.Fatalf("AccountID(Synthetic(%d)) = %d", accountID, got)
	}
	if got, want := ID3(synthetic), "[U:1:22164]"; got != want {
		t.Fatalf("ID3 = %q, want %q", got, want)
	}
}

func TestSyntheticBitFlags(t *testing.T) {
	got := Synthetic(1)
	want := (uint64(1) << 56) | (uint64(1) << 52) | (uint64(1) << 32) | 1
	if got != want {
		t.Fatalf("Synthetic(1) = %d, want %d", got, want)
	}
}
