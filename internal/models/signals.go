package models

// listeners 包订阅的信号名
const (
	SigAlertReceived  = "alert.received"  // 个人房间收到新报警
	SigAlertSubmitted = "alert.submitted" // 本机提交了报警
)
