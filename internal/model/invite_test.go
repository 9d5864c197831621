package model

import (
	"testing"
	"time"
)

func TestInviteStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		invite ScheduleShareInvite
		want   InviteStatus
	}{
		{"fresh", ScheduleShareInvite{ExpiresAt: &future}, InviteActive},
		{"no expiry", ScheduleShareInvite{}, InviteActive},
		{"expired", ScheduleShareInvite{ExpiresAt: &past}, InviteExpired},
		{"redeemed", ScheduleShareInvite{ExpiresAt: &future, RedeemedAt: &past}, InviteRedeemed},
		{"redeemed then expired", ScheduleShareInvite{ExpiresAt: &past, RedeemedAt: &past}, InviteExpired},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.invite.Status(now); got != c.want {
				t.Errorf("status = %q, want %q", got, c.want)
			}
		})
	}
}

func TestInviteExpiredNilNeverExpires(t *testing.T) {
	inv := ScheduleShareInvite{}
	if inv.Expired(time.Now().Add(1000 * time.Hour)) {
		t.Error("invite without expiry must never expire")
	}
}
