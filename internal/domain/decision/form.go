// Пакет decision — конечный автомат формы решения модератора.
//
// Жизненный цикл формы одного объявления:
//   - viewing → submitting — отправка решения (не более одной в полёте)
//   - submitting → succeeded | failed — результат запроса к API
//   - succeeded | failed → viewing — форма снова редактируема
//   - failed → submitting — повторная отправка
//
// Валидация причины выполняется до перехода в submitting, т.е. до сетевого запроса.
// Потокобезопасен через sync.Mutex.
package decision

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
)

// State — состояние формы.
type State string

const (
	StateViewing    State = "viewing"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Kind — вид решения.
type Kind string

const (
	KindApprove        Kind = "approve"
	KindReject         Kind = "reject"
	KindRequestChanges Kind = "requestChanges"
)

// RequiresReason — для reject и requestChanges причина обязательна.
func (k Kind) RequiresReason() bool {
	return k == KindReject || k == KindRequestChanges
}

// Action возвращает действие, которым решение будет записано в истории.
func (k Kind) Action() model.DecisionAction {
	switch k {
	case KindReject:
		return model.ActionRejected
	case KindRequestChanges:
		return model.ActionRequestChanges
	default:
		return model.ActionApproved
	}
}

// ParseKind преобразует строку в Kind. Принимает и URL-вариант "request-changes".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "approve":
		return KindApprove, nil
	case "reject":
		return KindReject, nil
	case "requestChanges", "request-changes":
		return KindRequestChanges, nil
	default:
		return "", fmt.Errorf("недопустимое решение: %q, допустимые: approve, reject, request-changes", s)
	}
}

// Сообщения, которые показываются модератору.
const (
	MessageReasonRequired = "Укажите причину перед отправкой решения"
	MessageSubmitFailed   = "Не удалось выполнить действие. Попробуйте ещё раз."
)

// Ошибки формы.
var (
	// ErrReasonRequired — reject/requestChanges без причины. Возвращается до сетевого запроса.
	ErrReasonRequired = errors.New("reason_required")
	// ErrSubmissionInFlight — по объявлению уже отправляется решение.
	ErrSubmissionInFlight = errors.New("решение по объявлению уже отправляется")
)

// Submission — введённые модератором данные.
type Submission struct {
	Kind    Kind
	Reason  string
	Comment string
}

// Validate проверяет обязательность причины.
func (s Submission) Validate() error {
	if s.Kind.RequiresReason() && strings.TrimSpace(s.Reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// Payload возвращает тело запроса к API (причина и комментарий обрезаны).
func (s Submission) Payload() model.ModerationPayload {
	return model.ModerationPayload{
		Reason:  strings.TrimSpace(s.Reason),
		Comment: strings.TrimSpace(s.Comment),
	}
}

// validTransitions — матрица допустимых переходов.
var validTransitions = map[State]map[State]bool{
	StateViewing:    {StateSubmitting: true},
	StateSubmitting: {StateSucceeded: true, StateFailed: true},
	StateSucceeded:  {StateViewing: true, StateSubmitting: true},
	StateFailed:     {StateViewing: true, StateSubmitting: true},
}

// Snapshot — копия состояния формы для отображения.
type Snapshot struct {
	AdID      int64     `json:"adId"`
	State     State     `json:"state"`
	Pending   Kind      `json:"pending,omitempty"`
	Error     string    `json:"error,omitempty"`
	// Editable — форма доступна для ввода (кнопки решений активны)
	Editable  bool      `json:"editable"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Form — состояние формы решения по одному объявлению.
type Form struct {
	mu        sync.Mutex
	adID      int64
	state     State
	pending   Kind
	errMsg    string
	updatedAt time.Time
}

// NewForm создаёт форму в состоянии viewing.
func NewForm(adID int64) *Form {
	return &Form{
		adID:      adID,
		state:     StateViewing,
		updatedAt: time.Now().UTC(),
	}
}

// Snapshot возвращает текущее состояние.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		AdID:      f.adID,
		State:     f.state,
		Pending:   f.pending,
		Error:     f.errMsg,
		Editable:  f.state != StateSubmitting,
		UpdatedAt: f.updatedAt,
	}
}

// Begin валидирует отправку и переводит форму в submitting.
// Ошибка валидации оставляет форму редактируемой и сохраняет сообщение.
// Повторный вызов во время submitting возвращает ErrSubmissionInFlight.
func (f *Form) Begin(s Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateSubmitting {
		return ErrSubmissionInFlight
	}

	if err := s.Validate(); err != nil {
		f.errMsg = MessageReasonRequired
		if f.state != StateViewing {
			f.state = StateViewing
		}
		f.touch()
		return err
	}

	if err := f.transition(StateSubmitting); err != nil {
		return err
	}
	f.pending = s.Kind
	f.errMsg = ""
	return nil
}

// Succeed фиксирует успешную отправку: ошибка формы очищается.
func (f *Form) Succeed() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.transition(StateSucceeded); err != nil {
		return err
	}
	f.pending = ""
	f.errMsg = ""
	return nil
}

// Fail фиксирует неудачную отправку с сообщением для модератора.
func (f *Form) Fail(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.transition(StateFailed); err != nil {
		return err
	}
	f.pending = ""
	f.errMsg = message
	return nil
}

// Reset возвращает форму в viewing и очищает устаревшую ошибку
// (переход к соседнему объявлению). Во время submitting не действует.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateSubmitting {
		return
	}
	f.state = StateViewing
	f.errMsg = ""
	f.touch()
}

// transition выполняет переход по матрице. Вызывается под f.mu.
func (f *Form) transition(target State) error {
	if !validTransitions[f.state][target] {
		return &TransitionError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("переход %s → %s недопустим", f.state, target),
		}
	}
	f.state = target
	f.touch()
	return nil
}

func (f *Form) touch() {
	f.updatedAt = time.Now().UTC()
}

// TransitionError — ошибка перехода между состояниями формы.
type TransitionError struct {
	Code    string
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
