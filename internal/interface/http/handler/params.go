package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/bookmall/pkg/errors"
	"github.com/xiebiao/bookmall/pkg/response"
)

// pathID 解析路径中的正整数ID，非法时直接写错误响应并返回false
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, apperrors.ErrInvalidParams.WithMessagef("非法的%s", name))
		return 0, false
	}
	return uint(id), true
}

// bindFailed 参数绑定/校验失败
// 学习要点：validator的错误信息包含字段名，直接返回给调用方便于调试
func bindFailed(c *gin.Context, err error) {
	response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
}
