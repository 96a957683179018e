// Package notification は通知の永続化・ライブ配信・受信箱APIを提供する。
//
// ディスパッチャは通知レコードを無条件に永続化した上で、レジストリに
// 登録されたライブ配信チャネルへのプッシュをベストエフォートで試みる。
// プッシュの成否は永続化結果に影響せず、オフラインのクライアントは
// 受信箱の一覧取得APIで通知を確実に参照できる。
package notification
