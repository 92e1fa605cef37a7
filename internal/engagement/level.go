package engagement

// PointsPerLevel é a quantidade de pontos acumulados por nível.
const PointsPerLevel = 100

// LevelFor deriva o nível a partir do total histórico.
func LevelFor(totalPoints int) int {
	if totalPoints < 0 {
		totalPoints = 0
	}
	return totalPoints/PointsPerLevel + 1
}

// LevelProgress descreve quanto falta para o próximo nível.
type LevelProgress struct {
	CurrentLevel int     `json:"current_level"`
	Progress     int     `json:"progress"`
	PointsToNext int     `json:"points_to_next"`
	Percentage   float64 `json:"percentage"`
}

// ProgressFor calcula o progresso dentro do nível atual.
func ProgressFor(totalPoints int) LevelProgress {
	level := LevelFor(totalPoints)
	floor := (level - 1) * PointsPerLevel
	progress := totalPoints - floor
	if progress < 0 {
		progress = 0
	}
	return LevelProgress{
		CurrentLevel: level,
		Progress:     progress,
		PointsToNext: level*PointsPerLevel - totalPoints,
		Percentage:   float64(progress) * 100 / PointsPerLevel,
	}
}
