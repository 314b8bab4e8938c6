package usecase

import (
	"context"
	"math"
	"testing"

	"ChainPulse/internal/domain/service"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCombineSentiment(t *testing.T) {
	if got := CombineSentiment(0.8, 0.4); !approx(got, 0.64) {
		t.Fatalf("expected 0.64, got %v", got)
	}
}

func TestAggregateSkipsFailedProviders(t *testing.T) {
	social := []service.SocialProvider{
		&fakeSocial{name: "twitter", score: 0.9},
		&fakeSocial{name: "discord", score: 0.7},
		&fakeSocial{name: "telegram", err: errDown},
	}
	news := []service.NewsProvider{
		&fakeNews{name: "wire", score: 0.4},
		&fakeNews{name: "blog", err: errDown},
	}
	a := NewSentimentAggregator(social, news, nil, 0, nil, nil)

	s := a.Aggregate(context.Background(), "ETH")
	if !approx(s.Social, 0.8) || !approx(s.News, 0.4) {
		t.Fatalf("unexpected means social=%v news=%v", s.Social, s.News)
	}
	if !approx(s.Score, 0.64) {
		t.Fatalf("expected 0.64, got %v", s.Score)
	}
	if _, ok := s.Errors["social:telegram"]; !ok {
		t.Fatalf("telegram failure not reported: %v", s.Errors)
	}
	if _, ok := s.Errors["news:blog"]; !ok {
		t.Fatalf("blog failure not reported: %v", s.Errors)
	}
}

func TestAggregateWithoutAnswersIsZero(t *testing.T) {
	a := NewSentimentAggregator(
		[]service.SocialProvider{&fakeSocial{name: "twitter", err: errDown}},
		nil, nil, 0, nil, nil,
	)
	s := a.Aggregate(context.Background(), "ETH")
	if s.Score != 0 {
		t.Fatalf("expected 0, got %v", s.Score)
	}
}

func TestAggregateCachesSocialScores(t *testing.T) {
	p := &fakeSocial{name: "twitter", score: 0.5}
	a := NewSentimentAggregator([]service.SocialProvider{p}, nil, nil, 0, nil, nil)

	a.Aggregate(context.Background(), "ETH")
	a.Aggregate(context.Background(), "ETH")
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("expected 1 provider call, got %d", n)
	}

	a.Clear()
	a.Aggregate(context.Background(), "ETH")
	if n := p.calls.Load(); n != 2 {
		t.Fatalf("expected refetch after Clear, got %d calls", n)
	}
}
