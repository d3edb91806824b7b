package flow

import "github.com/BTreeMap/LineSchedule/internal/report"

// User-facing replies.
const (
	MsgEmptyMessage   = "予定の内容を入力してください。"
	MsgMessageTooLong = "メッセージが長すぎます。短くしてもう一度送ってください。"
	MsgInvalidData    = "無効なデータが入力されました。"
	MsgStoreError     = "データベース処理中にエラーが発生しました。時間をおいて再度お試しください。"
	MsgDateUnresolved = "日付を取得できませんでした。"
	MsgNoEvents       = "その日の予定はありません。"
	MsgReportNoEvents = report.NoEventsMessage

	// msgSaved echoes the entry text and the raw selection.
	msgSaved = "%s を %s に保存しました。"
	// msgDayHeader precedes a day listing.
	msgDayHeader = "%sの予定:\n%s"
)

// Picker prompts.
const (
	PickerTextDatetime = "日時を選んでください"
	PickerTextDate     = "日付を選んでください"
	PickerAltText      = "日時選択メッセージ"
	PickerLabel        = "Select date"
)

// UnknownSelection stands in for a picker selection that did not arrive.
const UnknownSelection = "不明"
