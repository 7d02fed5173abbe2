package main

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/loopioopisnoopi/digital-asset-tokenization/registry"
)

type registerRequest struct {
	AssetKey    string `json:"asset_key"`
	CID         string `json:"cid"`
	UserAddress string `json:"user_address"`
}

type verifyRequest struct {
	AssetKey    string `json:"asset_key"`
	Verified    *bool  `json:"verified"`
	UserAddress string `json:"user_address"`
}

type transferRequest struct {
	AssetKey    string `json:"asset_key"`
	To          string `json:"to"`
	UserAddress string `json:"user_address"`
}

func handleUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(400, gin.H{"message": "file field is required"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(400, gin.H{"message": "unable to read the uploaded file"})
			return
		}
		defer src.Close()

		content, err := io.ReadAll(src)
		if err != nil {
			c.JSON(400, gin.H{"message": "unable to read the uploaded file"})
			return
		}

		cid, err := ipfsc.Upload(file.Filename, content)
		if err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"cid":     cid,
			"gateway": ipfsc.GatewayURL(cid),
		})
	}
}

func handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"message": "invalid request body"})
			return
		}
		if req.AssetKey == "" || req.CID == "" {
			c.JSON(400, gin.H{"message": "asset_key and cid are required"})
			return
		}

		caller, err := callerAddress(c, req.UserAddress)
		if err != nil {
			c.JSON(400, gin.H{"message": err.Error()})
			return
		}

		rec, receipt, err := svc.Register(req.AssetKey, req.CID, caller)
		if err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"tx_id":     receipt.TxID,
			"asset_key": req.AssetKey,
			"asset_id":  rec.AssetID.Hex(),
			"token_id":  rec.TokenID,
			"cid":       rec.IPFSCid,
		})
	}
}

func handleVerify() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"message": "invalid request body"})
			return
		}
		if req.AssetKey == "" || req.Verified == nil {
			c.JSON(400, gin.H{"message": "asset_key and verified are required"})
			return
		}

		caller, err := callerAddress(c, req.UserAddress)
		if err != nil {
			c.JSON(400, gin.H{"message": err.Error()})
			return
		}

		receipt, err := svc.Verify(req.AssetKey, *req.Verified, caller)
		if err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"tx_id":     receipt.TxID,
			"asset_key": req.AssetKey,
			"verified":  *req.Verified,
		})
	}
}

func handleTransfer() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transferRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"message": "invalid request body"})
			return
		}
		if req.AssetKey == "" {
			c.JSON(400, gin.H{"message": "asset_key is required"})
			return
		}

		to, err := registry.ParseAddress(req.To)
		if err != nil {
			c.JSON(400, gin.H{"message": err.Error()})
			return
		}

		caller, err := callerAddress(c, req.UserAddress)
		if err != nil {
			c.JSON(400, gin.H{"message": err.Error()})
			return
		}

		receipt, err := svc.Transfer(req.AssetKey, to, caller)
		if err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"tx_id":     receipt.TxID,
			"asset_key": req.AssetKey,
			"owner":     to.String(),
		})
	}
}

func handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		assetKey := c.Query("asset_key")
		if assetKey == "" {
			c.JSON(400, gin.H{"message": "asset_key is required"})
			return
		}

		rec, err := svc.Get(assetKey)
		if err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"asset_key":    assetKey,
			"asset_id":     rec.AssetID.Hex(),
			"owner":        rec.Owner.String(),
			"verified":     rec.Verified,
			"token_id":     rec.TokenID,
			"ipfs_cid":     rec.IPFSCid,
			"ipfs_gateway": ipfsc.GatewayURL(rec.IPFSCid),
		})
	}
}

func handleContent() gin.HandlerFunc {
	return func(c *gin.Context) {
		assetKey := c.Query("asset_key")
		if assetKey == "" {
			c.JSON(400, gin.H{"message": "asset_key is required"})
			return
		}

		rec, err := svc.Get(assetKey)
		if err != nil {
			checkErr(c, err)
			return
		}

		name, content, err := ipfsc.Download(rec.IPFSCid)
		if err != nil {
			checkErr(c, err)
			return
		}

		c.Header("Content-Disposition", "attachment; filename="+name)
		c.Header("Content-Length", strconv.Itoa(len(content)))
		c.Data(http.StatusOK, http.DetectContentType(content), content)
	}
}

func handleAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin_address": svc.Admin().String()})
	}
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		assets, lastToken, err := svc.Stats()
		if err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"assets":        assets,
			"last_token_id": lastToken,
		})
	}
}
