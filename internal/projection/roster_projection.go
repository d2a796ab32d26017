package projection

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/parul297/MeraEvents/internal/domain/attendee"
	"github.com/parul297/MeraEvents/internal/domain/event"
)

var (
	ErrPredictionNotFound = errors.New("予測が見つかりません")
	ErrUnknownEvent       = errors.New("未観測のイベントです")
	ErrUnknownAttendee    = errors.New("未観測の参加者です")
)

// 予測の種別
type predictionKind int

const (
	kindRegister predictionKind = iota
	kindUpdate
	kindCancel
	kindRetire
)

// prediction は未確定の楽観的変更を表す
// サーバー応答の確定（Confirm）か巻き戻し（Revert）で必ず解消される
type prediction struct {
	kind predictionKind
	// 予測で名簿に入れた仮レコードのID（register/update）
	tempID string
	// 変更前の状態のスナップショット（revert用）
	prevAttendee *attendee.Attendee
	prevEvent    *event.Event
	prevRoster   []*attendee.Attendee
	eventID      string
}

// RosterProjection はクライアント側の楽観的名簿プロジェクション
//
// サーバー確定前に登録・更新・取消・イベント削除の効果を仮IDで先行反映し、
// 確定応答で権威レコードに置き換える（Confirm）か、エラー応答で
// 直前の観測状態へ完全に巻き戻す（Revert）
type RosterProjection struct {
	mu      sync.RWMutex
	events  map[string]*event.Event
	rosters map[string]map[string]*attendee.Attendee // eventID → attendeeID → attendee
	pending map[string]*prediction                   // tempID → prediction
}

// NewRosterProjection は空のプロジェクションを作成する
func NewRosterProjection() *RosterProjection {
	return &RosterProjection{
		events:  make(map[string]*event.Event),
		rosters: make(map[string]map[string]*attendee.Attendee),
		pending: make(map[string]*prediction),
	}
}

// ObserveEvent はサーバーから取得したイベントを観測状態に取り込む
func (p *RosterProjection) ObserveEvent(e *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[e.ID] = cloneEvent(e)
	if _, ok := p.rosters[e.ID]; !ok {
		p.rosters[e.ID] = make(map[string]*attendee.Attendee)
	}
}

// ObserveAttendee はサーバーから取得した参加者を観測状態に取り込む
func (p *RosterProjection) ObserveAttendee(a *attendee.Attendee) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rosters[a.EventID]; !ok {
		p.rosters[a.EventID] = make(map[string]*attendee.Attendee)
	}
	p.rosters[a.EventID][a.ID] = cloneAttendee(a)
}

// PredictRegister は登録の効果を仮IDで先行反映する
// 返された仮IDはConfirmまたはRevertに渡すこと
func (p *RosterProjection) PredictRegister(eventID, name, email string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	roster, ok := p.rosters[eventID]
	if !ok {
		return "", ErrUnknownEvent
	}

	tempID := newTempID()
	roster[tempID] = &attendee.Attendee{
		ID:      tempID,
		EventID: eventID,
		Name:    name,
		Email:   email,
	}
	p.pending[tempID] = &prediction{
		kind:    kindRegister,
		tempID:  tempID,
		eventID: eventID,
	}
	return tempID, nil
}

// PredictUpdate は登録内容の変更（イベント移動を含む）を先行反映する
func (p *RosterProjection) PredictUpdate(attendeeID, eventID, name, email string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.findAttendee(attendeeID)
	if prev == nil {
		return "", ErrUnknownAttendee
	}
	if _, ok := p.rosters[eventID]; !ok {
		return "", ErrUnknownEvent
	}

	// 元の行を外し、仮IDの行を移動先に入れる
	delete(p.rosters[prev.EventID], prev.ID)
	tempID := newTempID()
	p.rosters[eventID][tempID] = &attendee.Attendee{
		ID:      tempID,
		EventID: eventID,
		Name:    name,
		Email:   email,
	}
	p.pending[tempID] = &prediction{
		kind:         kindUpdate,
		tempID:       tempID,
		eventID:      eventID,
		prevAttendee: prev,
	}
	return tempID, nil
}

// PredictCancel は取消の効果を先行反映する
func (p *RosterProjection) PredictCancel(attendeeID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.findAttendee(attendeeID)
	if prev == nil {
		return "", ErrUnknownAttendee
	}

	delete(p.rosters[prev.EventID], prev.ID)
	tempID := newTempID()
	p.pending[tempID] = &prediction{
		kind:         kindCancel,
		tempID:       tempID,
		eventID:      prev.EventID,
		prevAttendee: prev,
	}
	return tempID, nil
}

// PredictRetire はイベント削除（名簿ごと）の効果を先行反映する
func (p *RosterProjection) PredictRetire(eventID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev, ok := p.events[eventID]
	if !ok {
		return "", ErrUnknownEvent
	}

	var roster []*attendee.Attendee
	for _, a := range p.rosters[eventID] {
		roster = append(roster, a)
	}
	delete(p.events, eventID)
	delete(p.rosters, eventID)

	tempID := newTempID()
	p.pending[tempID] = &prediction{
		kind:       kindRetire,
		tempID:     tempID,
		eventID:    eventID,
		prevEvent:  ev,
		prevRoster: roster,
	}
	return tempID, nil
}

// Confirm は予測をサーバーの権威レコードで置き換える
// 取消・イベント削除の確定では authoritative に nil を渡す
func (p *RosterProjection) Confirm(tempID string, authoritative *attendee.Attendee) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pred, ok := p.pending[tempID]
	if !ok {
		return ErrPredictionNotFound
	}
	delete(p.pending, tempID)

	switch pred.kind {
	case kindRegister, kindUpdate:
		if authoritative == nil {
			return fmt.Errorf("登録・更新の確定には権威レコードが必要です")
		}
		// 仮IDのレコードを破棄し、本物のIDのレコードを入れる
		delete(p.rosters[pred.eventID], pred.tempID)
		if _, ok := p.rosters[authoritative.EventID]; !ok {
			p.rosters[authoritative.EventID] = make(map[string]*attendee.Attendee)
		}
		p.rosters[authoritative.EventID][authoritative.ID] = cloneAttendee(authoritative)
	case kindCancel, kindRetire:
		// 先行反映済みの削除が確定しただけなので何もしない
	}
	return nil
}

// Revert は予測を破棄し、直前の観測状態へ完全に巻き戻す
func (p *RosterProjection) Revert(tempID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pred, ok := p.pending[tempID]
	if !ok {
		return ErrPredictionNotFound
	}
	delete(p.pending, tempID)

	switch pred.kind {
	case kindRegister:
		delete(p.rosters[pred.eventID], pred.tempID)
	case kindUpdate:
		delete(p.rosters[pred.eventID], pred.tempID)
		p.restoreAttendee(pred.prevAttendee)
	case kindCancel:
		p.restoreAttendee(pred.prevAttendee)
	case kindRetire:
		p.events[pred.eventID] = pred.prevEvent
		roster := make(map[string]*attendee.Attendee, len(pred.prevRoster))
		for _, a := range pred.prevRoster {
			roster[a.ID] = a
		}
		p.rosters[pred.eventID] = roster
	}
	return nil
}

// Roster はイベントの名簿（予測込み）を氏名順で返す
func (p *RosterProjection) Roster(eventID string) []*attendee.Attendee {
	p.mu.RLock()
	defer p.mu.RUnlock()

	roster := p.rosters[eventID]
	result := make([]*attendee.Attendee, 0, len(roster))
	for _, a := range roster {
		result = append(result, cloneAttendee(a))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Count はイベントの名簿の件数（予測込み）を返す
func (p *RosterProjection) Count(eventID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rosters[eventID])
}

// PendingCount は未解消の予測数を返す
func (p *RosterProjection) PendingCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pending)
}

// Event は観測済みイベントを返す（予測込み）
func (p *RosterProjection) Event(eventID string) (*event.Event, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ev, ok := p.events[eventID]
	if !ok {
		return nil, false
	}
	return cloneEvent(ev), true
}

func (p *RosterProjection) findAttendee(id string) *attendee.Attendee {
	for _, roster := range p.rosters {
		if a, ok := roster[id]; ok {
			return a
		}
	}
	return nil
}

func (p *RosterProjection) restoreAttendee(a *attendee.Attendee) {
	if a == nil {
		return
	}
	if _, ok := p.rosters[a.EventID]; !ok {
		p.rosters[a.EventID] = make(map[string]*attendee.Attendee)
	}
	p.rosters[a.EventID][a.ID] = a
}

func newTempID() string {
	return "tmp-" + uuid.New().String()
}

func cloneAttendee(a *attendee.Attendee) *attendee.Attendee {
	c := *a
	return &c
}

func cloneEvent(e *event.Event) *event.Event {
	c := *e
	return &c
}
