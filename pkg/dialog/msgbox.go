package dialog

import (
	"encoding/json"
	"fmt"
)

// BoxType selects the buttons of a message box.
type BoxType string

const (
	BoxOk       BoxType = "Ok"
	BoxOkCancel BoxType = "OkCancel"
	BoxYesNo    BoxType = "YesNo"
)

// Icon is the message box icon.
type Icon string

const (
	IconInfo     Icon = "Info"
	IconWarning  Icon = "Warning"
	IconError    Icon = "Error"
	IconQuestion Icon = "Question"
)

// MessageBoxResult is the button the user pressed.
type MessageBoxResult string

const (
	ResultOk     MessageBoxResult = "Ok"
	ResultCancel MessageBoxResult = "Cancel"
	ResultYes    MessageBoxResult = "Yes"
	ResultNo     MessageBoxResult = "No"
)

// MessageBox is a pop-up message with a fixed set of buttons.
type MessageBox struct {
	BoxType BoxType          `json:"box_type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Icon    Icon             `json:"icon"`
	Default MessageBoxResult `json:"default"`
}

// NewYesNo creates a message box with "Yes" and "No" buttons.
func NewYesNo(title, message string) *MessageBox {
	return &MessageBox{BoxType: BoxYesNo, Title: title, Message: message, Icon: IconQuestion, Default: ResultYes}
}

// NewOkCancel creates a message box with "Ok" and "Cancel" buttons.
func NewOkCancel(title, message string) *MessageBox {
	return &MessageBox{BoxType: BoxOkCancel, Title: title, Message: message, Icon: IconQuestion, Default: ResultOk}
}

// NewOk creates a message box with a single "Ok" button.
func NewOk(title, message string) *MessageBox {
	return &MessageBox{BoxType: BoxOk, Title: title, Message: message, Icon: IconInfo, Default: ResultOk}
}

// WithIcon sets the icon.
func (m *MessageBox) WithIcon(icon Icon) *MessageBox {
	m.Icon = icon
	return m
}

// WithDefault sets the result preselected in the dialog.
func (m *MessageBox) WithDefault(r MessageBoxResult) *MessageBox {
	m.Default = r
	return m
}

func (*MessageBox) TypeName() string { return "MessageBox" }

func (*MessageBox) resolve(data json.RawMessage) (MessageBoxResult, error) {
	variant, _, err := unitOrTagged(data)
	if err != nil {
		return "", err
	}
	switch r := MessageBoxResult(variant); r {
	case ResultOk, ResultCancel, ResultYes, ResultNo:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown message box result %q", ErrInvalidResult, variant)
	}
}
