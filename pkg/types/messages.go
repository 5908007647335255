package types

// Type tags carried at the start of every frame.
//
// Client -> Server
//   READY_MSG     (no arguments)
//   PLANE_OP_MSG  dice:int32 (1-6), plane:int32 (1-4, local to the sender)
//   FLY_OVER_MSG  accepted:bool
//
// Server -> Client
//   GAME_STATE_MSG  board:Snapshot (all 96 tiles)
//   TEXT_MSG        notice:string, one of the prefixes below
const (
	TagReady     = "READY_MSG"
	TagPlaneOp   = "PLANE_OP_MSG"
	TagFlyOver   = "FLY_OVER_MSG"
	TagGameState = "GAME_STATE_MSG"
	TagText      = "TEXT_MSG"
)

// Notice prefixes. Arguments follow the prefix separated by ':'.
const (
	NoticeWelcome   = "WELCOME"       // WELCOME:<player>:<color>
	NoticeJoined    = "PLAYER_JOINED" // PLAYER_JOINED:<player>
	NoticeReady     = "PLAYER_READY"  // PLAYER_READY:<player>
	NoticeLeft      = "PLAYER_LEFT"   // PLAYER_LEFT:<player>
	NoticeGameStart = "GAME_START"
	NoticeYourTurn  = "YOUR_TURN_ROLL_AND_CHOOSE_PLANE"
	NoticeChooseFly = "YOUR_TURN_CHOOSE_FLY"
	NoticeWaiting   = "WAITING"    // WAITING:<player>
	NoticeBonusRoll = "BONUS_ROLL" // BONUS_ROLL:<player>
	NoticeCapture   = "CAPTURE"    // CAPTURE:<piece>
	NoticeFinished  = "FINISHED"   // FINISHED:<piece>
	NoticeGameOver  = "GAME_OVER"  // GAME_OVER:<winner>
	NoticeStalled   = "STALLED"
	NoticeGameReset = "GAME_RESET"
	NoticeError     = "ERROR" // ERROR:<reason>
)
