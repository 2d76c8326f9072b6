package domain

import (
	"testing"
)

func TestTriggerCategory_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		category TriggerCategory
		want     bool
	}{
		{name: "booking is valid", category: TriggerBooking, want: true},
		{name: "review is valid", category: TriggerReview, want: true},
		{name: "exploration is valid", category: TriggerExploration, want: true},
		{name: "profile completion is valid", category: TriggerProfileCompletion, want: true},
		{name: "social is valid", category: TriggerSocial, want: true},
		{name: "daily check-in is valid", category: TriggerDailyCheckIn, want: true},
		{name: "referral is valid", category: TriggerReferral, want: true},
		{name: "streak is valid", category: TriggerStreak, want: true},
		{name: "invalid category", category: TriggerCategory("PAYMENT"), want: false},
		{name: "empty category", category: TriggerCategory(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.category.IsValid(); got != tt.want {
				t.Errorf("TriggerCategory.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecurrence_IsValid(t *testing.T) {
	tests := []struct {
		name       string
		recurrence Recurrence
		want       bool
	}{
		{name: "none is valid", recurrence: RecurrenceNone, want: true},
		{name: "daily is valid", recurrence: RecurrenceDaily, want: true},
		{name: "weekly is valid", recurrence: RecurrenceWeekly, want: true},
		{name: "monthly is not supported", recurrence: Recurrence("MONTHLY"), want: false},
		{name: "empty recurrence", recurrence: Recurrence(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.recurrence.IsValid(); got != tt.want {
				t.Errorf("Recurrence.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransactionKind_IsValid(t *testing.T) {
	tests := []struct {
		name string
		kind TransactionKind
		want bool
	}{
		{name: "credit is valid", kind: TransactionCredit, want: true},
		{name: "debit is valid", kind: TransactionDebit, want: true},
		{name: "invalid kind", kind: TransactionKind("TRANSFER"), want: false},
		{name: "empty kind", kind: TransactionKind(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.IsValid(); got != tt.want {
				t.Errorf("TransactionKind.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransactionSource_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		source TransactionSource
		want   bool
	}{
		{name: "quest is valid", source: SourceQuest, want: true},
		{name: "membership is valid", source: SourceMembership, want: true},
		{name: "booking is valid", source: SourceBooking, want: true},
		{name: "redemption is valid", source: SourceRedemption, want: true},
		{name: "adjustment is valid", source: SourceAdjustment, want: true},
		{name: "invalid source", source: TransactionSource("LOTTERY"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.source.IsValid(); got != tt.want {
				t.Errorf("TransactionSource.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRewardTransaction_SignedPoints(t *testing.T) {
	tests := []struct {
		name string
		tx   *RewardTransaction
		want int64
	}{
		{
			name: "credit is positive",
			tx:   &RewardTransaction{Kind: TransactionCredit, Points: 150},
			want: 150,
		},
		{
			name: "debit is negative",
			tx:   &RewardTransaction{Kind: TransactionDebit, Points: 75},
			want: -75,
		},
		{
			name: "zero points",
			tx:   &RewardTransaction{Kind: TransactionCredit, Points: 0},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.SignedPoints(); got != tt.want {
				t.Errorf("RewardTransaction.SignedPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuestProgress_MeetsTarget(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		target int
		want   bool
	}{
		{name: "below target", count: 2, target: 3, want: false},
		{name: "at target", count: 3, target: 3, want: true},
		{name: "above target", count: 5, target: 3, want: true},
		{name: "zero count", count: 0, target: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &QuestProgress{CurrentCount: tt.count}
			if got := p.MeetsTarget(tt.target); got != tt.want {
				t.Errorf("QuestProgress.MeetsTarget(%d) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestQuestProgress_ProgressPercent(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		target int
		want   float64
	}{
		{name: "zero progress", count: 0, target: 4, want: 0},
		{name: "partial progress", count: 1, target: 4, want: 25},
		{name: "complete", count: 4, target: 4, want: 100},
		{name: "over target capped at 100", count: 9, target: 4, want: 100},
		{name: "zero target reports zero", count: 3, target: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &QuestProgress{CurrentCount: tt.count}
			if got := p.ProgressPercent(tt.target); got != tt.want {
				t.Errorf("QuestProgress.ProgressPercent(%d) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestTransactionSource_Label(t *testing.T) {
	tests := []struct {
		source TransactionSource
		want   string
	}{
		{source: SourceQuest, want: "Quest reward"},
		{source: SourceMembership, want: "Membership bonus"},
		{source: SourceBooking, want: "Booking reward"},
		{source: SourceRedemption, want: "Points redemption"},
		{source: SourceAdjustment, want: "Manual adjustment"},
		{source: TransactionSource("CUSTOM"), want: "CUSTOM"},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			if got := tt.source.Label(); got != tt.want {
				t.Errorf("TransactionSource.Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMetadata_ValueAndScan(t *testing.T) {
	md := Metadata{"quest_id": "q-daily-checkin", "trigger": "DAILY_CHECK_IN"}

	value, err := md.Value()
	if err != nil {
		t.Fatalf("Metadata.Value() error = %v", err)
	}

	var decoded Metadata
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("Metadata.Scan() error = %v", err)
	}

	if decoded["quest_id"] != "q-daily-checkin" {
		t.Errorf("round-tripped quest_id = %v, want q-daily-checkin", decoded["quest_id"])
	}
	if decoded["trigger"] != "DAILY_CHECK_IN" {
		t.Errorf("round-tripped trigger = %v, want DAILY_CHECK_IN", decoded["trigger"])
	}
}

func TestMetadata_NilValue(t *testing.T) {
	var md Metadata

	value, err := md.Value()
	if err != nil {
		t.Fatalf("Metadata.Value() error = %v", err)
	}
	if value != nil {
		t.Errorf("nil metadata Value() = %v, want nil", value)
	}

	var decoded Metadata
	if err := decoded.Scan(nil); err != nil {
		t.Fatalf("Metadata.Scan(nil) error = %v", err)
	}
	if decoded != nil {
		t.Errorf("scanned nil metadata = %v, want nil", decoded)
	}
}
