// Package conversation は会話ターンの応答を表す値型を提供する。
// ハンドラーは共有の応答オブジェクトを書き換えず、Responseの値を返す。
// 外部プラットフォームの形式への変換はdialogflowパッケージが行う。
package conversation

import "slices"

// Kind はターンを継続するか終了するかを表す。
type Kind int

const (
	// KindAsk はプロンプトを提示してユーザーの次の入力を待つ。
	KindAsk Kind = iota
	// KindClose はプロンプトを提示して会話を終了する。
	KindClose
)

// ListItem は選択リストの1項目。Keyは次のターンでOPTION引数として返ってくる。
type ListItem struct {
	Key   string
	Title string
}

// SelectionList は選択リストのプロンプト。
type SelectionList struct {
	Title string
	Items []ListItem
}

// ContextChange は名前付き会話コンテキストの設定または削除を表す。
// Lifespanが0の場合はコンテキストを削除する。
type ContextChange struct {
	Name     string
	Lifespan int
}

// Response は1ターン分の応答。
type Response struct {
	Kind        Kind
	Prompts     []string
	List        *SelectionList
	Suggestions []string
	Contexts    []ContextChange
}

// Ask はユーザーの入力を待つ応答を生成する。
func Ask(prompts ...string) Response {
	return Response{Kind: KindAsk, Prompts: slices.Clone(prompts)}
}

// Close は会話を終了する応答を生成する。
func Close(prompts ...string) Response {
	return Response{Kind: KindClose, Prompts: slices.Clone(prompts)}
}

// ExpectsUserResponse はユーザーの次の入力を待つかどうかを返す。
func (r Response) ExpectsUserResponse() bool {
	return r.Kind == KindAsk
}

// WithPrefix は先頭にプロンプトを追加した応答を返す。
func (r Response) WithPrefix(prompts ...string) Response {
	r.Prompts = append(slices.Clone(prompts), r.Prompts...)
	return r
}

// WithSuggestions はサジェストチップを設定した応答を返す。
func (r Response) WithSuggestions(suggestions ...string) Response {
	r.Suggestions = slices.Clone(suggestions)
	return r
}

// WithList は選択リストを設定した応答を返す。
func (r Response) WithList(list SelectionList) Response {
	list.Items = slices.Clone(list.Items)
	r.List = &list
	return r
}

// WithContext はコンテキストの変更を追加した応答を返す。
func (r Response) WithContext(name string, lifespan int) Response {
	r.Contexts = append(slices.Clone(r.Contexts), ContextChange{Name: name, Lifespan: lifespan})
	return r
}

// WithoutContext はコンテキストを削除する変更を追加した応答を返す。
func (r Response) WithoutContext(name string) Response {
	return r.WithContext(name, 0)
}
