package api

import (
	"time"

	"SOS911/internal/models"
)

// 后端接口沿用西语字段名，这里集中做映射，
// 业务层只见 models 包的类型

// ubicacionDTO 位置
type ubicacionDTO struct {
	Latitud   float64 `json:"latitud"`
	Longitud  float64 `json:"longitud"`
	Direccion string  `json:"direccion,omitempty"`
}

// AlertaPayload POST /alertas 的请求体
// 在线、离线两条路径共用同一结构，id_local 让服务端按本地ID幂等
type AlertaPayload struct {
	Tipo           string       `json:"tipo"`
	Ubicacion      ubicacionDTO `json:"ubicacion"`
	GrupoID        string       `json:"grupo_id,omitempty"`
	IDUsuarioSQL   string       `json:"idUsuarioSql"`
	Prioridad      string       `json:"prioridad"`
	FechaCreacion  int64        `json:"fecha_creacion"`
	EmitidaOffline bool         `json:"emitida_offline"`
	IDLocal        string       `json:"id_local"`
}

// NewAlertaPayload 由待同步记录构造请求体
func NewAlertaPayload(rec models.PendingAlertRecord) AlertaPayload {
	return AlertaPayload{
		Tipo: string(rec.Type),
		Ubicacion: ubicacionDTO{
			Latitud:   rec.Location.Latitude,
			Longitud:  rec.Location.Longitude,
			Direccion: rec.Location.Address,
		},
		GrupoID:        rec.GroupID,
		IDUsuarioSQL:   rec.UserID,
		Prioridad:      string(rec.Priority),
		FechaCreacion:  rec.CreatedAtEpochMs,
		EmitidaOffline: rec.EmittedOffline,
		IDLocal:        rec.LocalID,
	}
}

// alertaDTO 服务端返回的报警对象
type alertaDTO struct {
	ID            string       `json:"id"`
	Tipo          string       `json:"tipo"`
	Titulo        string       `json:"titulo"`
	Estado        string       `json:"estado"`
	Prioridad     string       `json:"prioridad"`
	Ubicacion     ubicacionDTO `json:"ubicacion"`
	Descripcion   string       `json:"descripcion,omitempty"`
	IDUsuarioSQL  string       `json:"idUsuarioSql"`
	FechaCreacion int64        `json:"fecha_creacion"`
}

func (d alertaDTO) toModel() models.Alert {
	return models.Alert{
		ID:       d.ID,
		Type:     models.AlertCategory(d.Tipo),
		Title:    d.Titulo,
		Status:   models.AlertStatus(d.Estado),
		Priority: models.PriorityLevel(d.Prioridad),
		Location: models.Location{
			Latitude:  d.Ubicacion.Latitud,
			Longitude: d.Ubicacion.Longitud,
			Address:   d.Ubicacion.Direccion,
		},
		Details:   d.Descripcion,
		SenderID:  d.IDUsuarioSQL,
		CreatedAt: time.UnixMilli(d.FechaCreacion),
	}
}

// syncRequest POST /alertas/sync-offline 的请求体
type syncRequest struct {
	Alertas []AlertaPayload `json:"alertas"`
}

// syncResponse 批量同步只返回整体成败，没有逐条确认
type syncResponse struct {
	Success bool `json:"success"`
}

// estadoRequest 状态流转请求体
type estadoRequest struct {
	Estado     string `json:"estado"`
	Comentario string `json:"comentario,omitempty"`
}
