package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
)

const (
	bulkModeAtomic  = "atomic"
	bulkModePartial = "partial"
)

type (
	attendanceAPI struct {
		conf *core.Config
		svc  attendance.Service
	}

	bulkRequest struct {
		Mode    string                     `json:"mode"`
		Records []attendance.NewAttendance `json:"records"`
	}
)

func registerAttendanceAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, svc attendance.Service, conf *core.Config) {
	api := &attendanceAPI{conf: conf, svc: svc}

	g := v1.Group("/attendance", jwt, actorMiddleware())
	g.POST("", api.upsert)
	g.POST("/bulk", api.markBulk)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)

	classes := g.Group("/classes/:classID")
	classes.GET("", api.classRecords)
	classes.GET("/snapshot", api.classSnapshot)
	classes.GET("/stats", api.classStats)
	classes.GET("/absences", api.consecutiveAbsences)
	classes.GET("/sessions/:sessionID", api.sessionRecords)
	classes.GET("/sessions/:sessionID/issues", api.attendanceIssues)

	students := g.Group("/students/:studentID")
	students.GET("", api.studentRecords)
	students.GET("/monthly", api.studentMonthly)
	students.GET("/sessions/:sessionID/summary", api.studentSummary)
	students.GET("/sessions/:sessionID/report", api.studentReport)
}

// recordAs credits the authenticated caller, whatever the payload claims.
func recordAs(na *attendance.NewAttendance, actor core.Actor) {
	na.RecordedBy = actor.ID
}

func (api *attendanceAPI) upsert(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var na attendance.NewAttendance
	if err := ctx.Bind(&na); err != nil {
		return err
	}
	recordAs(&na, actor)

	rec, err := api.svc.Upsert(ctx.Request().Context(), na)
	if err != nil {
		return errors.Wrap(err, "upserting attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceAPI) markBulk(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var req bulkRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	for i := range req.Records {
		recordAs(&req.Records[i], actor)
	}

	switch req.Mode {
	case "", bulkModeAtomic:
		recs, err := api.svc.MarkBulk(ctx.Request().Context(), req.Records)
		if err != nil {
			return errors.Wrap(err, "marking attendance")
		}
		return ctx.JSON(http.StatusOK, recs)
	case bulkModePartial:
		results, err := api.svc.MarkBulkPartial(ctx.Request().Context(), req.Records)
		if err != nil {
			return errors.Wrap(err, "marking attendance")
		}
		return ctx.JSON(http.StatusOK, results)
	default:
		return core.NewArgumentError("mode must be one of atomic, partial")
	}
}

func (api *attendanceAPI) retrieve(ctx echo.Context) error {
	rec, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceAPI) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var ua attendance.UpdateAttendance
	if err := ctx.Bind(&ua); err != nil {
		return err
	}

	rec, err := api.svc.UpdateWithNotification(ctx.Request().Context(), ctx.Param("id"), ua, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceAPI) classRecords(ctx echo.Context) error {
	date, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}
	var statuses []attendance.Status
	for _, s := range ctx.QueryParams()["status"] {
		statuses = append(statuses, attendance.Status(s))
	}
	recs, err := api.svc.FindByClassAndDate(ctx.Request().Context(), ctx.Param("classID"), date, statuses...)
	if err != nil {
		return errors.Wrap(err, "finding class attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceAPI) classSnapshot(ctx echo.Context) error {
	date, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}
	snap, err := api.svc.ClassSnapshot(ctx.Request().Context(), ctx.Param("classID"), date)
	if err != nil {
		return errors.Wrap(err, "getting class snapshot")
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *attendanceAPI) classStats(ctx echo.Context) error {
	start, end, err := rangeParams(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.ClassStats(ctx.Request().Context(), ctx.Param("classID"), start, end)
	if err != nil {
		return errors.Wrap(err, "getting class stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceAPI) consecutiveAbsences(ctx echo.Context) error {
	minDays, err := intParam(ctx, "min_days", 3)
	if err != nil {
		return err
	}
	runs, err := api.svc.ConsecutiveAbsences(ctx.Request().Context(), ctx.Param("classID"), minDays)
	if err != nil {
		return errors.Wrap(err, "detecting absences")
	}
	return ctx.JSON(http.StatusOK, runs)
}

func (api *attendanceAPI) sessionRecords(ctx echo.Context) error {
	recs, err := api.svc.FindByClassAndSession(ctx.Request().Context(), ctx.Param("classID"), ctx.Param("sessionID"))
	if err != nil {
		return errors.Wrap(err, "finding session attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceAPI) attendanceIssues(ctx echo.Context) error {
	var threshold float64
	if s := ctx.QueryParam("threshold"); s != "" {
		var err error
		if threshold, err = strconv.ParseFloat(s, 64); err != nil {
			return core.NewArgumentError("threshold must be a number")
		}
	}
	issues, err := api.svc.AttendanceIssues(ctx.Request().Context(), ctx.Param("classID"), ctx.Param("sessionID"), threshold)
	if err != nil {
		return errors.Wrap(err, "finding attendance issues")
	}
	return ctx.JSON(http.StatusOK, issues)
}

func (api *attendanceAPI) studentRecords(ctx echo.Context) error {
	start, end, err := rangeParams(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.FindByStudentAndRange(ctx.Request().Context(), ctx.Param("studentID"), start, end)
	if err != nil {
		return errors.Wrap(err, "finding student attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceAPI) studentMonthly(ctx echo.Context) error {
	year, month, err := monthParams(ctx)
	if err != nil {
		return err
	}
	days, err := api.svc.StudentMonthly(ctx.Request().Context(), ctx.Param("studentID"), year, month)
	if err != nil {
		return errors.Wrap(err, "getting monthly attendance")
	}
	return ctx.JSON(http.StatusOK, days)
}

func (api *attendanceAPI) studentSummary(ctx echo.Context) error {
	sum, err := api.svc.StudentSummary(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("sessionID"))
	if err != nil {
		return errors.Wrap(err, "getting attendance summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *attendanceAPI) studentReport(ctx echo.Context) error {
	year, month, err := monthParams(ctx)
	if err != nil {
		return err
	}
	recent, err := intParam(ctx, "recent", 0)
	if err != nil {
		return err
	}
	report, err := api.svc.StudentReport(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("sessionID"), year, month, recent)
	if err != nil {
		return errors.Wrap(err, "getting attendance report")
	}
	return ctx.JSON(http.StatusOK, report)
}

// query params

func dateParam(ctx echo.Context, name string) (time.Time, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return time.Time{}, core.NewArgumentError(name + " is required")
	}
	date, err := attendance.ParseDate(s)
	if err != nil {
		return time.Time{}, core.NewArgumentError(name + " must be a YYYY-MM-DD date")
	}
	return date, nil
}

func rangeParams(ctx echo.Context) (start, end time.Time, err error) {
	if start, err = dateParam(ctx, "start"); err != nil {
		return
	}
	end, err = dateParam(ctx, "end")
	return
}

func intParam(ctx echo.Context, name string, def int) (int, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return def, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, core.NewArgumentError(name + " must be an integer")
	}
	return i, nil
}

func monthParams(ctx echo.Context) (year, month int, err error) {
	now := time.Now().UTC()
	if year, err = intParam(ctx, "year", now.Year()); err != nil {
		return
	}
	month, err = intParam(ctx, "month", int(now.Month()))
	return
}
