// Package prompts holds the built-in extraction prompts. Jobs normally load
// their prompt from the bucket; these defaults are the fallback when the
// bucket object is missing.
package prompts

import "collector/internal/config"

// Prompt design principles:
// 1. Assign a clear role before the task
// 2. Pin the output to a single machine-readable format
// 3. Enumerate the allowed values for closed fields
// 4. Be explicit about what to do when information is missing

const urlCollect = `あなたは医療機関サイトのページを分類する専門家です。
与えられたページ一覧から、医師紹介ページと外来担当表ページを特定してください。

必ず以下のTSV形式（タブ区切り）で、ページごとに1行ずつ出力してください：
fac_id_unif[TAB]url[TAB]type[TAB]department[TAB]page_title

type は以下のいずれかのみ：
- s: 医師紹介ページ
- g_txt: 外来担当表（HTMLテーブル）
- g_img: 外来担当表（画像）
- g_pdf: 外来担当表（PDF）
- sg_txt / sg_img / sg_pdf: 医師紹介と外来担当表の両方を含むページ
- none: どちらでもないページ

説明文やコードブロックは出力しないでください。`

const doctorInfo = `あなたは医療機関の医師紹介ページから情報を抽出する専門家です。
ページに記載されている医師を、記載順にすべて抽出してください。

必ず以下のTSV形式（タブ区切り）で、医師ごとに1行ずつ出力してください：
department[TAB]position[TAB]name[TAB]specialty[TAB]licence[TAB]others

ルール：
- name には医師の氏名のみを入れる。診療科名や役職を入れてはいけない
- specialty は専門分野を「/」区切りで列挙する
- licence は学会専門医・認定医などの資格を「/」区切りで列挙する
- ページに記載のない項目は空欄にする。推測で補ってはいけない
- サンプルや例示の氏名を出力してはいけない

説明文やコードブロックは出力しないでください。`

const outpatient = `あなたは医療機関の外来担当表から担当医情報を抽出する専門家です。
表のセルごとに、診療科・曜日・担当医の組み合わせをすべて抽出してください。

必ず以下のTSV形式（タブ区切り）で、セルごとに1行ずつ出力してください：
fac_id_unif[TAB]fac_nm[TAB]department[TAB]day_of_week[TAB]first_followup_visit[TAB]doctors_name[TAB]position[TAB]charge_week[TAB]charge_date[TAB]specialty[TAB]update_date

ルール：
- day_of_week は 月/火/水/木/金/土/日 のいずれか
- first_followup_visit は 初診/再診/初再診 のいずれか、記載がなければ空欄
- charge_week は「第1・3週」などの週指定、charge_date は「午前」「9:00-12:00」などの時間帯
- 担当医が交代制の場合は1人1行に分けて出力する
- 表に記載のない項目は空欄にする

説明文やコードブロックは出力しないでください。`

const validation = `あなたは医療機関の専門医情報を検証する専門家です。
以下の医師情報がWebページに実際に存在するか、記載内容が正しいかを検証してください。

検証対象の医師情報：
- 氏名: {name}
- 診療科: {department}
- 役職: {position}
- 専門分野: {specialty}
- 資格: {licence}
- その他: {others}

必ず以下のTSV形式（タブ区切り）で1行のみ出力してください：
validation_status[TAB]validation_message[TAB]corrected_name[TAB]corrected_department[TAB]corrected_position[TAB]corrected_specialty[TAB]corrected_licence[TAB]corrected_others

検証ステータス：
- VALID: 医師名と診療科が正しく、他の項目も概ね正しい
- PARTIAL: 医師は存在し名前と診療科は合っているが、他の項目に相違や欠落がある
- INVALID: 該当医師がページに全く存在しない
- NOTFOUND: 技術的理由で検証不可`

var defaults = map[config.JobType]string{
	config.JobURLCollect: urlCollect,
	config.JobDoctorInfo: doctorInfo,
	config.JobOutpatient: outpatient,
	config.JobValidation: validation,
}

// Default returns the built-in prompt for a job type. Unknown types get an
// empty string.
func Default(t config.JobType) string {
	return defaults[t]
}
